package quota

// DailyLimit is the default daily budget in quota units.
const DailyLimit int64 = 10000

// Unit costs of the YouTube Data API v3 methods in use.
const (
	CostSearchList          int64 = 100
	CostPlaylistsList       int64 = 1
	CostPlaylistsInsert     int64 = 50
	CostPlaylistItemsInsert int64 = 50
	CostPlaylistItemsList   int64 = 1
)
