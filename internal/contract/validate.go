package contract

// Input limits, in bytes. These mirror the storage bounds of the record
// fields; validation rejects anything outside them with invalid-input.
const (
	MaxNameLen        = 50
	MaxEmailLen       = 100
	MaxRoleLen        = 10
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
	MaxContentURLLen  = 500
	MaxMaterialLen    = 20
	MaxProgress       = 100
)

// validText reports whether s is non-empty and at most max bytes. Limits are
// byte lengths, not rune counts.
func validText(s string, max int) bool {
	return len(s) > 0 && len(s) <= max
}
