package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

type linuxSender struct{}

func (linuxSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

type macSender struct{}

func (macSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier sends run notifications when enabled and the platform supports them
type Notifier struct {
	sender  NotificationSender
	enabled bool
}

// NewNotifier picks a sender for the current platform
func NewNotifier(enabled bool) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = linuxSender{}
	case "darwin":
		sender = macSender{}
	}
	return &Notifier{sender: sender, enabled: enabled}
}

// NewNotifierWithSender uses sender regardless of platform
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, enabled: true}
}

// Notify sends the notification; failures are returned but rarely worth more than a log line
func (n *Notifier) Notify(title, message string) error {
	if !n.enabled || n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}
