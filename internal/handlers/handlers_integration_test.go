package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"mozicblog/internal/handlers"
	"mozicblog/internal/middleware"
	"mozicblog/internal/models"
	"mozicblog/internal/repositories"
	"mozicblog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// captureNotifier records the activation tokens a real notifier would mail
// out, so tests can follow the confirmation link.
type captureNotifier struct {
	tokens map[string]string // email -> activation token
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{tokens: make(map[string]string)}
}

func (n *captureNotifier) SendActivationEmail(user *models.User) error {
	if user.ActivationToken == nil {
		return fmt.Errorf("user %s has no activation token", user.ID)
	}
	n.tokens[user.Email] = *user.ActivationToken
	return nil
}

// testEnv bundles everything a test needs to drive the app.
type testEnv struct {
	app      *fiber.App
	userRepo repositories.UserRepository
	auth     *services.AuthService
	notifier *captureNotifier
}

var testDBSeq int64

// setupApp sets up a Fiber app for testing with in-memory SQLite and all
// handlers/services, mirroring the wiring in main.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Follow{}); err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}

	userRepo := repositories.NewGORMUserRepository(db)
	followRepo := repositories.NewGORMFollowRepository(db)

	notifier := newCaptureNotifier()
	authService := services.NewAuthService(userRepo, jwtSecret)
	accountService := services.NewAccountService(userRepo, notifier)
	followService := services.NewFollowService(followRepo)

	flash := handlers.NewCookieFlash()
	userHandler := handlers.NewUserHandler(accountService, followService, authService, services.OwnerPolicy{}, flash)
	followHandler := handlers.NewFollowHandler(followService, accountService)

	app := fiber.New()
	userHandler.RegisterRoutes(app)
	protected := app.Group("", middleware.AuthRequired(authService))
	userHandler.RegisterProtectedRoutes(protected)
	followHandler.RegisterRoutes(protected)

	return &testEnv{
		app:      app,
		userRepo: userRepo,
		auth:     authService,
		notifier: notifier,
	}
}

// createActivatedUser seeds an already-activated user and returns them with a
// valid session token.
func createActivatedUser(t *testing.T, env *testEnv, name, email string) (*models.User, string) {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Activated: true,
	}
	if err := env.userRepo.Create(user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	token, err := env.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return user, token
}

func jsonRequest(method, target string, body interface{}, bearer string) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(ioutil.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestRegisterConfirmLoginFlow(t *testing.T) {
	env := setupApp(t)

	// Register: redirects home, activation mail dispatched
	register := map[string]string{
		"name":                  "Test User",
		"email":                 "test@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	}
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/users", register, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	token, ok := env.notifier.tokens["test@example.com"]
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	// Login before confirmation is rejected
	login := map[string]string{"email": "test@example.com", "password": "password123"}
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/login", login, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Confirming with an unknown token activates nothing
	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/signup/confirm/not-a-token", nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Confirming with the real token activates, logs in and redirects to the
	// profile
	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/signup/confirm/"+token, nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Session-Token"))
	user, lookupErr := env.userRepo.GetByEmail("test@example.com")
	assert.NoError(t, lookupErr)
	assert.True(t, user.Activated)
	assert.Nil(t, user.ActivationToken)
	assert.Equal(t, "/users/"+user.ID, resp.Header.Get("Location"))
	resp.Body.Close()

	// A second redemption of the consumed token fails like an unknown one
	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/signup/confirm/"+token, nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Login now succeeds
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/login", login, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	assert.NotEmpty(t, loginResp["token"])
	resp.Body.Close()
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	env := setupApp(t)

	// Mismatched password confirmation fails with field errors
	bad := map[string]string{
		"name":                  "Test User",
		"email":                 "test@example.com",
		"password":              "password123",
		"password_confirmation": "different",
	}
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/users", bad, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Validation failed", body["message"])
	resp.Body.Close()

	// Duplicate email registration conflicts
	good := map[string]string{
		"name":                  "Test User",
		"email":                 "test@example.com",
		"password":              "password123",
		"password_confirmation": "password123",
	}
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/users", good, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/users", good, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// An authenticated caller is bounced home instead of re-registering
	_, token := createActivatedUser(t, env, "Existing", "existing@example.com")
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/users", good, token), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()
}

func TestFollowUnfollowFlow(t *testing.T) {
	env := setupApp(t)
	_, tokenA := createActivatedUser(t, env, "Alice", "alice@example.com")
	userB, _ := createActivatedUser(t, env, "Bob", "bob@example.com")

	followURL := "/users/" + userB.ID + "/follow"
	profile := "/users/" + userB.ID

	// Follow: redirect to the followed user's profile
	resp, err := env.app.Test(jsonRequest(http.MethodPost, followURL, nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, profile, resp.Header.Get("Location"))
	resp.Body.Close()

	// Following again: same redirect, still exactly one follower
	resp, err = env.app.Test(jsonRequest(http.MethodPost, followURL, nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, profile, resp.Header.Get("Location"))
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodGet, profile+"/followers", nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Title string        `json:"title"`
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Equal(t, "followers", listing.Title)
	assert.Equal(t, int64(1), listing.Total)
	assert.Len(t, listing.Users, 1)
	assert.Equal(t, "Alice", listing.Users[0].Name)
	resp.Body.Close()

	// Unfollow twice: both redirect, listing ends up empty
	for i := 0; i < 2; i++ {
		resp, err = env.app.Test(jsonRequest(http.MethodDelete, followURL, nil, tokenA), -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, profile, resp.Header.Get("Location"))
		resp.Body.Close()
	}

	resp, err = env.app.Test(jsonRequest(http.MethodGet, profile+"/followers", nil, ""), -1)
	assert.NoError(t, err)
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Zero(t, listing.Total)
	assert.Empty(t, listing.Users)
	resp.Body.Close()
}

func TestSelfFollowRedirectsHome(t *testing.T) {
	env := setupApp(t)
	userA, tokenA := createActivatedUser(t, env, "Alice", "alice@example.com")

	// Following yourself is silently bounced home, no edge created
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/users/"+userA.ID+"/follow", nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	// Same for unfollow
	resp, err = env.app.Test(jsonRequest(http.MethodDelete, "/users/"+userA.ID+"/follow", nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/users/"+userA.ID+"/followers", nil, ""), -1)
	assert.NoError(t, err)
	var listing struct {
		Total int64 `json:"total"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Zero(t, listing.Total)
	resp.Body.Close()
}

func TestFollowRequiresAuthAndExistingTarget(t *testing.T) {
	env := setupApp(t)
	userB, _ := createActivatedUser(t, env, "Bob", "bob@example.com")
	_, tokenA := createActivatedUser(t, env, "Alice", "alice@example.com")

	// No token: unauthorized
	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/users/"+userB.ID+"/follow", nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Unknown target: not found
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/users/no-such-user/follow", nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProfileUpdateAndDelete(t *testing.T) {
	env := setupApp(t)
	userA, tokenA := createActivatedUser(t, env, "Alice", "alice@example.com")
	userB, tokenB := createActivatedUser(t, env, "Bob", "bob@example.com")

	update := map[string]string{"name": "Alice Updated"}

	// Another user's token: forbidden
	resp, err := env.app.Test(jsonRequest(http.MethodPut, "/users/"+userA.ID, update, tokenB), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Owner: updated, redirected to the profile
	resp, err = env.app.Test(jsonRequest(http.MethodPut, "/users/"+userA.ID, update, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/"+userA.ID, resp.Header.Get("Location"))
	resp.Body.Close()

	updated, err := env.userRepo.GetByID(userA.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Alice Updated", updated.Name)
	// Password untouched when none was supplied
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("password123")))

	// Deleting someone else's account is forbidden
	resp, err = env.app.Test(jsonRequest(http.MethodDelete, "/users/"+userB.ID, nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Deleting your own account works and cascades the follow rows
	resp, err = env.app.Test(jsonRequest(http.MethodPost, "/users/"+userA.ID+"/follow", nil, tokenB), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodDelete, "/users/"+userA.ID, nil, tokenA), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	_, err = env.userRepo.GetByID(userA.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/users/"+userB.ID+"/followings", nil, ""), -1)
	assert.NoError(t, err)
	var listing struct {
		Total int64 `json:"total"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Zero(t, listing.Total)
	resp.Body.Close()
}

func TestUserIndexAndShow(t *testing.T) {
	env := setupApp(t)
	for i := 0; i < 12; i++ {
		createActivatedUser(t, env, fmt.Sprintf("User %02d", i), fmt.Sprintf("user%02d@example.com", i))
	}

	// Index pages at 10 users per page
	resp, err := env.app.Test(jsonRequest(http.MethodGet, "/users", nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var index struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&index))
	assert.Equal(t, int64(12), index.Total)
	assert.Len(t, index.Users, 10)
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/users?page=2", nil, ""), -1)
	assert.NoError(t, err)
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&index))
	assert.Len(t, index.Users, 2)
	resp.Body.Close()

	// Show returns the profile with counts; unknown users are a 404
	target := index.Users[0]
	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/users/"+target.ID, nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var show struct {
		User           models.User `json:"user"`
		FollowerCount  int64       `json:"follower_count"`
		FollowingCount int64       `json:"following_count"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&show))
	assert.Equal(t, target.ID, show.User.ID)
	resp.Body.Close()

	resp, err = env.app.Test(jsonRequest(http.MethodGet, "/users/no-such-user", nil, ""), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
