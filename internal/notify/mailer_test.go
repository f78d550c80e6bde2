package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendRegistrationMail(t *testing.T) {
	var gotTo []string
	var gotMsg string

	m := NewSMTPMailer("mail.example.com:25", "noreply@ark.example.com", "", "", "https://ark.example.com/")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := m.SendRegistrationMail(context.Background(), Identity{
		Name: "Ada", Mail: "ada@example.com", UUID: "token-123",
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "https://ark.example.com/verify/token-123")
	assert.Contains(t, gotMsg, "Subject: Welcome to Ark")
}

func TestSendRegistrationMailWithPassword(t *testing.T) {
	var gotMsg string

	m := NewSMTPMailer("mail.example.com:25", "noreply@ark.example.com", "", "", "https://ark.example.com")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}

	err := m.SendRegistrationMailWithPassword(context.Background(), Identity{
		Name: "Ada", Mail: "ada@example.com",
	}, "s3cretPass")
	assert.NoError(t, err)
	assert.Contains(t, gotMsg, "s3cretPass")
}

func TestDeliverFailure(t *testing.T) {
	m := NewSMTPMailer("mail.example.com:25", "noreply@ark.example.com", "", "", "https://ark.example.com")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	err := m.SendRegistrationMail(context.Background(), Identity{Mail: "ada@example.com"})
	assert.Error(t, err)
}
