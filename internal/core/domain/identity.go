package domain

import "time"

// Theme is the UI colour scheme stored on a profile.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a supported theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

const ProviderGoogle = "google"

// Identity is the authenticated principal owning a private namespace.
// It is passed explicitly into every collection operation.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Path returns the collection path for name inside this identity's namespace.
func (id *Identity) Path(name CollectionName) CollectionPath {
	return CollectionPath{UID: id.UID, Collection: name}
}

// Account is the identity-provider record behind an Identity.
type Account struct {
	UID             string
	Email           string
	DisplayName     string
	PhotoURL        string
	PasswordHash    string
	Provider        string
	ProviderSubject string
	Disabled        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity projects the account onto its public principal.
func (a *Account) Identity() *Identity {
	return &Identity{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	}
}

// HasPassword reports whether the account can re-authenticate with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// Profile is the per-identity settings record stored at users/{uid}.
type Profile struct {
	UID         string    `json:"uid" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	DisplayName string    `json:"displayName" bson:"display_name"`
	PhotoURL    string    `json:"photoURL,omitempty" bson:"photo_url,omitempty"`
	Theme       Theme     `json:"theme" bson:"theme"`
	IsNewUser   bool      `json:"isNewUser" bson:"is_new_user"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// NewProfile synthesises the default profile for an account.
func NewProfile(a *Account, now time.Time) *Profile {
	return &Profile{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
		Theme:       ThemeLight,
		IsNewUser:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
