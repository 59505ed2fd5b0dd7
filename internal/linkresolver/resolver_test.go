package linkresolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/bankassist/internal/errx"
)

type mockCompleter struct {
	reply string
	err   error
}

func (m mockCompleter) Complete(context.Context, string, string) (string, error) {
	return m.reply, m.err
}

func TestParse(t *testing.T) {
	r := New(nil)

	link, err := r.Parse("```json\n{\"title\": \"Card Blocking\", \"url\": \"https://www.hdfcbank.com/personal/faq/card-blocking\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Card Blocking", link.Title)

	bad := []string{
		`{"title": "x", "url": "https://a.com", "note": "extra"}`,
		`{"title": "", "url": "https://a.com"}`,
		`{"title": "x", "url": "not a url"}`,
		`{"title": "x", "url": "https://a.com"} {"title": "y"}`,
		`Title: x`,
	}
	for _, raw := range bad {
		_, err := r.Parse(raw)
		assert.True(t, errx.Is(err, errx.Parse), "Parse(%q) err = %v", raw, err)
	}
}

func TestResolve_Model(t *testing.T) {
	r := New(mockCompleter{reply: `{"title":"NetBanking","url":"https://netbanking.hdfcbank.com/netbanking/"}`})
	link, ok := r.Resolve(context.Background(), "where do I log in")
	require.True(t, ok)
	assert.Equal(t, "Here is the link for **NetBanking**: [Click here](https://netbanking.hdfcbank.com/netbanking/)", Format(link, ok))
}

func TestResolve_FallsBackToKnownLinks(t *testing.T) {
	for _, m := range []mockCompleter{
		{err: errors.New("unavailable")},
		{reply: `{"title":"","url":""}`},
	} {
		link, ok := New(m).Resolve(context.Background(), "How do I Block Card quickly?")
		require.True(t, ok)
		assert.Equal(t, "Block Card", link.Title)
		assert.Equal(t, "https://www.hdfcbank.com/personal/faq/card-blocking", link.URL)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	link, ok := New(mockCompleter{err: errors.New("x")}).Resolve(context.Background(), "tell me a joke")
	assert.False(t, ok)
	assert.Equal(t, MsgNoLink, Format(link, ok))
}

func TestFromKnownLinks_Order(t *testing.T) {
	link, ok := FromKnownLinks("kyc update and mobile update")
	require.True(t, ok)
	assert.Equal(t, "Kyc Update", link.Title)
}
