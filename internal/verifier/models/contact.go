package models

// Contact maps an operator identity to the phone number that receives
// verification notices.
type Contact struct {
	Identity string
	Phone    string
}
