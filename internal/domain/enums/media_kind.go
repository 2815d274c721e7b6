package enums

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// Playable media cannot share a status with other attachments.
func (k MediaKind) Playable() bool {
	return k == MediaKindVideo || k == MediaKindAudio
}
