// Package util holds small string helpers shared by the service packages.
package util
