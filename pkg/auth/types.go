package auth

// SubjectKind classifies the actor behind a request.
type SubjectKind string

const (
	KindAnonymous SubjectKind = "anonymous" // unauthenticated visitor
	KindUser      SubjectKind = "user"      // authenticated profile
	KindSuperuser SubjectKind = "superuser" // bypasses all visibility checks
)

// Subject is the resolved actor handed to the engine by the transport
// layer. The engine never authenticates; it only consumes subjects.
type Subject struct {
	ProfileID int64       `json:"profile_id,omitempty"` // zero for anonymous
	Username  string      `json:"username,omitempty"`
	Kind      SubjectKind `json:"kind"`
}

// Anonymous returns the unauthenticated subject.
func Anonymous() Subject {
	return Subject{Kind: KindAnonymous}
}

// User returns an authenticated subject for the given profile.
func User(profileID int64, username string) Subject {
	return Subject{ProfileID: profileID, Username: username, Kind: KindUser}
}

// Superuser returns a privileged subject that short-circuits every
// visibility resolver.
func Superuser(profileID int64, username string) Subject {
	return Subject{ProfileID: profileID, Username: username, Kind: KindSuperuser}
}

// IsAnonymous reports whether the subject is unauthenticated.
func (s Subject) IsAnonymous() bool {
	return s.Kind == KindAnonymous || (s.Kind != KindSuperuser && s.ProfileID == 0)
}

// IsSuperuser reports whether the subject bypasses visibility checks.
func (s Subject) IsSuperuser() bool {
	return s.Kind == KindSuperuser
}
