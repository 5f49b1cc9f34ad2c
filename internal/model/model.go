package model

const (
	EventUpcoming = "upcoming"
	EventPast     = "past"

	MembershipIEEE    = "ieee"
	MembershipNonIEEE = "non-ieee"

	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
	RegistrationRejected = "rejected"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

// Collection names in the document store.
const (
	EventsCollection        = "events"
	RegistrationsCollection = "registrations"
	BlogsCollection         = "blogs"
	UsersCollection         = "users"
)

type Fees struct {
	IEEE    float64 `json:"ieee"`
	NonIEEE float64 `json:"nonIeee"`
}

// For returns the fee charged for the given membership type.
func (f Fees) For(membershipType string) float64 {
	if membershipType == MembershipIEEE {
		return f.IEEE
	}
	return f.NonIEEE
}

// Event is stored with an ISO date (2006-01-02) and a 24h time (15:04).
// Status, DisplayDate and DisplayTime are derived on every read.
type Event struct {
	ID                         string `json:"id,omitempty"`
	Title                      string `json:"title"`
	Date                       string `json:"date"`
	Time                       string `json:"time"`
	Location                   string `json:"location"`
	Type                       string `json:"type"`
	Image                      string `json:"image"`
	Description                string `json:"description"`
	Status                     string `json:"status,omitempty"`
	Fees                       *Fees  `json:"fees,omitempty"`
	CreatedAt                  string `json:"createdAt,omitempty"`
	UpdatedAt                  string `json:"updatedAt,omitempty"`
	PostRegistrationMessage    string `json:"postRegistrationMessage,omitempty"`
	PostRegistrationLink       string `json:"postRegistrationLink,omitempty"`
	PostRegistrationButtonText string `json:"postRegistrationButtonText,omitempty"`

	DisplayDate string `json:"displayDate,omitempty"`
	DisplayTime string `json:"displayTime,omitempty"`
}

type Registration struct {
	ID                string  `json:"id,omitempty"`
	EventID           string  `json:"eventId"`
	EventTitle        string  `json:"eventTitle"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	College           string  `json:"college"`
	Department        string  `json:"department"`
	Year              string  `json:"year"`
	MembershipType    string  `json:"membershipType"`
	MembershipID      string  `json:"membershipId,omitempty"`
	RegistrationDate  string  `json:"registrationDate"`
	Status            string  `json:"status"`
	PaymentStatus     string  `json:"paymentStatus"`
	Amount            float64 `json:"amount"`
	PaymentScreenshot string  `json:"paymentScreenshot,omitempty"`
}

type Blog struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	CoverImage  string `json:"coverImage"`
	Author      string `json:"author"`
	Excerpt     string `json:"excerpt"`
	Slug        string `json:"slug"`
	IsPublished bool   `json:"isPublished"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type User struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Salt         string `json:"salt,omitempty"`
	IsAdmin      bool   `json:"isAdmin"`
	CreatedAt    string `json:"createdAt"`
}
