package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
templates:
  price_alert:
    title: "{{complex_name}} 알림"
    message: "{{price}}"
    priority: urgent
`)
	got, err := Parse(data)
	require.NoError(t, err)
	require.Contains(t, got, domain.NotificationPriceAlert)
	assert.Equal(t, "{{complex_name}} 알림", got[domain.NotificationPriceAlert].Title)
	assert.Equal(t, domain.PriorityUrgent, got[domain.NotificationPriceAlert].Priority)
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte("templates:\n  promotion:\n    title: a\n    message: b\n"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("templates:\n  price_alert:\n    title: a\n    message: b\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	got, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, got)

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  new_transaction:\n    title: a\n    message: b\n"), 0o600))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got[domain.NotificationNewTransaction].Title)
}
