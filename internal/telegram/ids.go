package telegram

// channelIDOffset separates channel ids from user and basic group ids in the
// signed id space bot clients use.
const channelIDOffset int64 = 1_000_000_000_000

// FullChannelID converts a raw channel id to its signed -100... form.
func FullChannelID(raw int64) int64 {
	return -(channelIDOffset + raw)
}

// RawChannelID extracts the raw channel id from a signed chat id.
// ok is false when id does not denote a channel.
func RawChannelID(id int64) (raw int64, ok bool) {
	if id >= -channelIDOffset {
		return 0, false
	}
	return -id - channelIDOffset, true
}
