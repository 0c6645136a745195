package models

// RemoteAccount is one normalized account row produced by an engine adapter.
// Username plus Engine is unique within one synchronization run; for engines
// that scope accounts by host (MySQL), the host is folded into Username as
// user@host. A RemoteAccount is built fresh on every run - the engine keeps
// no state between invocations.
type RemoteAccount struct {
	Username    string                 `json:"username"`
	DisplayName string                 `json:"display_name"`
	Engine      Engine                 `json:"engine"`
	IsSuperuser bool                   `json:"is_superuser"`
	IsActive    bool                   `json:"is_active"`
	IsLocked    bool                   `json:"is_locked"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Permissions *PermissionSnapshot    `json:"permissions"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewRemoteAccount creates an account with an empty permission snapshot.
// DisplayName defaults to the username.
func NewRemoteAccount(username string, engine Engine) *RemoteAccount {
	return &RemoteAccount{
		Username:    username,
		DisplayName: username,
		Engine:      engine,
		Attributes:  map[string]interface{}{},
		Permissions: NewPermissionSnapshot(),
		Metadata:    map[string]interface{}{},
	}
}
