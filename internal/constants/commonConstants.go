package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixAggregateCooldown CachePrefix = "AGG_COOLDOWN_"
	CachePrefixOwnerStatus       CachePrefix = "OWNER_STATUS_"
)
