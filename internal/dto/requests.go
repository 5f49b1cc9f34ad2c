package dto

type FeesRequest struct {
	IEEE    float64 `json:"ieee" validate:"gte=0"`
	NonIEEE float64 `json:"nonIeee" validate:"gte=0"`
}

// EventRequest mirrors the admin event form. All six descriptive fields are required.
type EventRequest struct {
	Title                      string       `json:"title" validate:"required,max=200"`
	Date                       string       `json:"date" validate:"required,isodate"`
	Time                       string       `json:"time" validate:"required,clock"`
	Location                   string       `json:"location" validate:"required"`
	Type                       string       `json:"type" validate:"required"`
	Description                string       `json:"description" validate:"required"`
	Image                      string       `json:"image" validate:"omitempty,url"`
	Fees                       *FeesRequest `json:"fees"`
	PostRegistrationMessage    string       `json:"postRegistrationMessage"`
	PostRegistrationLink       string       `json:"postRegistrationLink" validate:"omitempty,url"`
	PostRegistrationButtonText string       `json:"postRegistrationButtonText"`
}

type EventFilter struct {
	Type   string `form:"type"`
	Status string `form:"status" validate:"omitempty,oneof=all upcoming past"`
	Search string `form:"search"`
}

type RegistrationRequest struct {
	Name              string `json:"name" validate:"required,min=2,max=120"`
	Email             string `json:"email" validate:"required,email"`
	Phone             string `json:"phone" validate:"required,min=7,max=20"`
	College           string `json:"college" validate:"required"`
	Department        string `json:"department" validate:"required"`
	Year              string `json:"year" validate:"required"`
	MembershipType    string `json:"membershipType" validate:"required,oneof=ieee non-ieee"`
	MembershipID      string `json:"membershipId"`
	PaymentScreenshot string `json:"paymentScreenshot" validate:"omitempty,url"`
}

// RegistrationUpdate carries only the fields an admin may change; nil means untouched.
type RegistrationUpdate struct {
	Status            *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	PaymentStatus     *string `json:"paymentStatus" validate:"omitempty,oneof=pending completed"`
	PaymentScreenshot *string `json:"paymentScreenshot" validate:"omitempty,url"`
}

type RegistrationFilter struct {
	EventID string `form:"eventId"`
	Status  string `form:"status" validate:"omitempty,oneof=all pending approved rejected"`
	Search  string `form:"search"`
}

type BlogRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required"`
	CoverImage  string `json:"coverImage" validate:"omitempty,url"`
	Author      string `json:"author" validate:"required"`
	Excerpt     string `json:"excerpt" validate:"max=500"`
	IsPublished bool   `json:"isPublished"`
}

type BlogFilter struct {
	Search string `form:"search"`
	Limit  int    `form:"limit" validate:"gte=0"`
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	IsAdmin   bool   `json:"isAdmin"`
}

type ImageResponse struct {
	URL string `json:"url"`
}

// RegistrationMessage is published to the notification queue.
type RegistrationMessage struct {
	RegistrationID string  `json:"registrationId"`
	EventID        string  `json:"eventId"`
	EventTitle     string  `json:"eventTitle"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"paymentStatus"`
	Amount         float64 `json:"amount"`
}
