package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "success"
	APIStatusError APIStatus = "error"

	CachePrefixTwitchUser    CachePrefix = "TW_USER_"
	CachePrefixTwitchStreams CachePrefix = "TW_STREAMS"
	CachePrefixTwitchClips   CachePrefix = "TW_CLIPS_"
	CachePrefixTwitchVideos  CachePrefix = "TW_VIDEOS_"
)

// Blob store namespaces.
const (
	StoreMembers       = "members"
	StoreEvents        = "events"
	StoreEvaluations   = "evaluations"
	StoreSpotlights    = "spotlights"
	StoreRaids         = "raids"
	StoreAcademy       = "academy"
	StoreAcademyPromos = "academy-promos"
	StoreAcademyAccess = "academy-access"
	StoreAcademyForms  = "academy-forms"
	StoreVipMonth      = "vip-month"
	StoreTwitchTokens  = "twitch-tokens"
)

// Entities with a relational and a blob representation.
const (
	EntityMembers     = "members"
	EntityEvents      = "events"
	EntityEvaluations = "evaluations"
	EntitySpotlights  = "spotlights"
)

var DualStoreEntities = []string{EntityMembers, EntityEvents, EntityEvaluations, EntitySpotlights}

const (
	BackendRelational = "relational"
	BackendBlob       = "blob"
)

// Cookie names.
const (
	CookieSession     = "tenf_session"
	CookieAdmin       = "tenf_admin"
	CookieOAuthState  = "tenf_oauth_state"
	CookieTwitchState = "tenf_twitch_state"
)

// MonthLayout is the canonical month key format (YYYY-MM).
const MonthLayout = "2006-01"
