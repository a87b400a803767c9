package enums

// TagStatus tracks the lifecycle of a physical NFC tag.
type TagStatus string

const (
	TagStatusUnclaimed TagStatus = "unclaimed"
	TagStatusActive    TagStatus = "active"
)

func (s TagStatus) IsValid() bool {
	switch s {
	case TagStatusUnclaimed, TagStatusActive:
		return true
	}
	return false
}

func (s TagStatus) String() string {
	return string(s)
}
