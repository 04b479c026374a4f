package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChannel(t *testing.T) {
	for _, raw := range []string{"email", "chat", "bot"} {
		c, err := ParseChannel(raw)
		assert.NoError(t, err)
		assert.Equal(t, Channel(raw), c)
	}

	_, err := ParseChannel("pager")
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = ParseChannel("")
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestValidate(t *testing.T) {
	valid := Notification{
		UserID:  "u1",
		Type:    "welcome",
		Channel: ChannelEmail,
		Message: "hi",
	}
	assert.NoError(t, valid.Validate())

	n := valid
	n.UserID = ""
	assert.ErrorIs(t, n.Validate(), ErrEmptyUserID)

	n = valid
	n.Channel = "pager"
	assert.ErrorIs(t, n.Validate(), ErrInvalidChannel)
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{}.Normalize()
	assert.Equal(t, DefaultListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListFilter{Limit: 5000, Offset: -3}.Normalize()
	assert.Equal(t, MaxListLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListFilter{Limit: 25, Offset: 50}.Normalize()
	assert.Equal(t, 25, f.Limit)
	assert.Equal(t, 50, f.Offset)
}
