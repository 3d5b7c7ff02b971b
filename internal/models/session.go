package models

import "time"

// SessionCookie is the name of the opaque per-browser session cookie.
const SessionCookie = "sid"

// Session is the opaque identity the wizard keys its record on.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	IsNew     bool      `json:"-"`
}
