package credentials

// Credential is the access/refresh pair issued by an identity source.
// It is only ever replaced wholesale, never edited in place.
type Credential struct {
	AccessToken  string `json:"access_token"`  // Signed token carrying an exp claim
	RefreshToken string `json:"refresh_token"` // Opaque, longer lived than the access token
	HostAddress  string `json:"host_address"`  // Backing API the pair was issued for
}

// Clone returns an independent copy so callers cannot mutate the manager's credential
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
