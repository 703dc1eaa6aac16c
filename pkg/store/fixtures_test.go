package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/model"
)

// seedProfile creates a profile and returns the subject acting as it.
func seedProfile(t *testing.T, s *Store, username string, public bool) auth.Subject {
	t.Helper()

	p := &model.Profile{Username: username, DisplayName: username, IsPublic: public}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return auth.User(p.ID, username)
}

func seedCorpus(t *testing.T, s *Store, sub auth.Subject, name string, public bool) *model.Corpus {
	t.Helper()

	c := &model.Corpus{Name: name, IsPublic: public}
	require.NoError(t, s.CreateCorpus(context.Background(), sub, c))
	return c
}

func seedDocument(t *testing.T, s *Store, sub auth.Subject, corpusID int64, title string, public bool) *model.Document {
	t.Helper()

	d := &model.Document{CorpusID: corpusID, Title: title, Body: "body", IsPublic: public}
	require.NoError(t, s.CreateDocument(context.Background(), sub, d))
	return d
}

func seedConversation(t *testing.T, s *Store, sub auth.Subject, corpusID int64, topic string, public bool) *model.Conversation {
	t.Helper()

	c := &model.Conversation{CorpusID: corpusID, Topic: topic, IsPublic: public}
	require.NoError(t, s.CreateConversation(context.Background(), sub, c))
	return c
}
