package types

// Class is a grade label used for filtering menus.
type Class struct {
	ID       string `json:"id" db:"id" bson:"_id"`
	Grade    string `json:"grade" db:"grade" bson:"grade"`
	Category string `json:"category,omitempty" db:"category" bson:"category,omitempty"`
}

// Subject is a school subject name used for filtering menus.
type Subject struct {
	ID      string `json:"id" db:"id" bson:"_id"`
	Subject string `json:"subject" db:"subject" bson:"subject"`
}

// ClassFilter selects classes by exact grade and category. Empty fields
// match every class.
type ClassFilter struct {
	Grade    string
	Category string
}

// Matches reports whether c satisfies every set field of the filter.
func (f ClassFilter) Matches(c Class) bool {
	if f.Grade != "" && c.Grade != f.Grade {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	return true
}
