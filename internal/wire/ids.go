package wire

// Room/user id bands. These constants are part of the wire contract and are
// reproduced verbatim from the protocol's own unexplained magic numbers — no
// attempt is made to rationalize them beyond what the protocol documents.
const (
	idBandUser    int32 = 1_000_000_000
	idBandCam     int32 = 900_000_000
	idBandPublic  int32 = 300_000_000
	idBandSess    int32 = 200_000_000
	idBandChannel int32 = 100_000_000
)

// ToUserID normalizes a room id or user id into a bare user id. Ids already
// below every band are returned unchanged.
func ToUserID(id int32) int32 {
	switch {
	case id >= idBandUser:
		return id - idBandUser
	case id >= idBandCam:
		return id - idBandCam
	case id >= idBandPublic:
		return id - idBandPublic
	case id >= idBandSess:
		return id - idBandSess
	case id >= idBandChannel:
		return id - idBandChannel
	default:
		return id
	}
}

// ToRoomID normalizes a bare user id into its public-room id, the inverse of
// ToUserID's idBandPublic band. ToRoomID(ToUserID(x)) == ToRoomID(x) and
// ToUserID(ToRoomID(u)) == u for u already in the user-id band.
func ToRoomID(uid int32) int32 {
	if uid >= idBandChannel {
		// Already room-shaped (falls in some band); normalize through
		// ToUserID first so repeated calls are idempotent.
		uid = ToUserID(uid)
	}
	return uid + idBandPublic
}
