package model

// Categories an email can be classified as.
const (
	CategoryAdvertisement = "Advertisement"
	CategoryWork          = "Work"
	CategoryEntertainment = "Entertainment"
	CategoryEducation     = "Education"
	CategoryPersonal      = "Personal"
)

// Categories lists every recognized category.
var Categories = []string{
	CategoryAdvertisement,
	CategoryWork,
	CategoryEntertainment,
	CategoryEducation,
	CategoryPersonal,
}

// ValidCategory reports whether s is one of the recognized categories.
// The comparison is case-sensitive.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if s == c {
			return true
		}
	}
	return false
}

// Spooky reports whether emails of the given category are marked
// spooky. Work and Education emails are.
func Spooky(category string) bool {
	return category == CategoryWork || category == CategoryEducation
}
