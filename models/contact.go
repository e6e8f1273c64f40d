package models

// ContactRequest is a contact-form submission. Fields are validated by the
// handler so failures map to specific 400 messages; binding tags are not
// used here on purpose.
type ContactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}
