package cookie

import "time"

// Expiry states when a cookie lapses. The zero value is a session cookie.
// The wire encoding is seconds since the epoch, where 0 and 1 are reserved
// sentinels for the session and no-validation variants respectively.
type Expiry struct {
	unix int64
}

// Session returns the session expiry: no Expires or Max-Age attributes are
// emitted, the cookie lives for as long as the user agent keeps it.
func Session() Expiry {
	return Expiry{}
}

// NoValidate returns the expiry sentinel that opts the cookie out of value
// signing. On the wire it behaves as an immediate removal: Expires points
// at the beginning of time and Max-Age computes to zero.
func NoValidate() Expiry {
	return Expiry{unix: 1}
}

// At returns the expiry pointing at the given moment. Moments at the very
// beginning of the epoch collapse into the Session and NoValidate
// sentinels, mirroring the integer wire encoding.
func At(t time.Time) Expiry {
	return Expiry{unix: t.Unix()}
}

func (e Expiry) IsSession() bool {
	return e.unix == 0
}

// IsNoValidate reports whether the cookie opted out of value signing.
func (e Expiry) IsNoValidate() bool {
	return e.unix == 1
}

// Unix returns the expiry moment in seconds since the epoch. Zero stands
// for a session cookie.
func (e Expiry) Unix() int64 {
	return e.unix
}

func (e Expiry) Time() time.Time {
	return time.Unix(e.unix, 0)
}
