package auth

import "context"

type contextKey string

const subjectKey contextKey = "folio_subject"

// WithSubject returns a context carrying the resolved subject.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey, s)
}

// SubjectFrom extracts the subject from the context, defaulting to the
// anonymous subject when none was attached.
func SubjectFrom(ctx context.Context) Subject {
	if s, ok := ctx.Value(subjectKey).(Subject); ok {
		return s
	}
	return Anonymous()
}
