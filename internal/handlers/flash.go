package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashChannel carries one-shot user-facing messages across the redirect
// that follows a mutating request.
type FlashChannel interface {
	Success(c *fiber.Ctx, message string)
	Error(c *fiber.Ctx, message string)
}

// CookieFlash implements FlashChannel with short-lived cookies the next page
// load consumes.
type CookieFlash struct{}

// NewCookieFlash creates a new CookieFlash.
func NewCookieFlash() *CookieFlash {
	return &CookieFlash{}
}

// Success implements FlashChannel.
func (f *CookieFlash) Success(c *fiber.Ctx, message string) {
	f.set(c, "flash_success", message)
}

// Error implements FlashChannel.
func (f *CookieFlash) Error(c *fiber.Ctx, message string) {
	f.set(c, "flash_error", message)
}

func (f *CookieFlash) set(c *fiber.Ctx, name, message string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    message,
		Path:     "/",
		Expires:  time.Now().Add(time.Minute),
		HTTPOnly: true,
	})
}
