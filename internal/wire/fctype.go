package wire

import "strconv"

// FCType identifies the kind of a decoded packet. The enumeration is closed
// and fixed by the wire protocol; unknown values are passed through rather
// than rejected (see Packet.TypeName).
type FCType int32

const (
	NULL           FCType = 0
	LOGIN          FCType = 1
	ROOMDATA       FCType = 11
	USERNAMELOOKUP FCType = 17
	ZBAN           FCType = 23
	PMESG          FCType = 25
	STATUS         FCType = 26
	DETAILS        FCType = 30
	TOKENINC       FCType = 31
	ADDFRIEND      FCType = 35
	ADDIGNORE      FCType = 36
	CMESG          FCType = 37
	BOOKMARKS      FCType = 41
	JOINCHAN       FCType = 42
	ROOMHELPER     FCType = 62
	TXPROFILE      FCType = 63
	SESSIONSTATE   FCType = 64
	MYCAMSTATE     FCType = 65
	MYWEBCAM       FCType = 66
	TAGS           FCType = 68
	METRICS        FCType = 73
	MANAGELIST     FCType = 78
	BANCHAN        FCType = 84
	EXTDATA        FCType = 92
)

// ANY is not a wire fcType; it is the wildcard event name every packet is
// additionally emitted under.
const ANY = "ANY"

var fcTypeNames = map[FCType]string{
	NULL:           "NULL",
	LOGIN:          "LOGIN",
	ROOMDATA:       "ROOMDATA",
	USERNAMELOOKUP: "USERNAMELOOKUP",
	ZBAN:           "ZBAN",
	PMESG:          "PMESG",
	STATUS:         "STATUS",
	DETAILS:        "DETAILS",
	TOKENINC:       "TOKENINC",
	ADDFRIEND:      "ADDFRIEND",
	ADDIGNORE:      "ADDIGNORE",
	CMESG:          "CMESG",
	BOOKMARKS:      "BOOKMARKS",
	JOINCHAN:       "JOINCHAN",
	ROOMHELPER:     "ROOMHELPER",
	TXPROFILE:      "TXPROFILE",
	SESSIONSTATE:   "SESSIONSTATE",
	MYCAMSTATE:     "MYCAMSTATE",
	MYWEBCAM:       "MYWEBCAM",
	TAGS:           "TAGS",
	METRICS:        "METRICS",
	MANAGELIST:     "MANAGELIST",
	BANCHAN:        "BANCHAN",
	EXTDATA:        "EXTDATA",
}

// Name returns the event name this fcType is emitted under. Unknown values
// are rendered as their decimal numeral and trigger no registry merge.
func (t FCType) Name() string {
	if n, ok := fcTypeNames[t]; ok {
		return n
	}
	return strconv.FormatInt(int64(t), 10)
}

// JOINCHAN secondary actions, carried in nArg2.
const (
	JOIN int32 = 0
	PART int32 = 2
)

// FCWOPT.REDIS_JSON is the EXTDATA sub-opcode that triggers HTTP indirection.
const REDIS_JSON int32 = 10

// FCL list kinds carried by MANAGELIST.
const (
	FCL_ROOMMATES int32 = 13
	FCL_CAMS      int32 = 14
	FCL_FRIENDS   int32 = 15
	FCL_IGNORES   int32 = 16
	FCL_TAGS      int32 = 21
)

// LV values: whether a session belongs to a model or a plain user.
const (
	LV_MODEL int32 = 4
)

// VS values: video state enumeration. Offline is the only value this
// package treats specially; all others are opaque integers from the wire.
const (
	VS_OFFLINE int32 = 0
)

