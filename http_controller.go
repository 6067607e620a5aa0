package authbridge

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// FlowController exposes the protocol over HTTP.
type FlowController struct {
	Flow   *Flow
	Tokens *TokenService
	Repo   RepositoryManager
	Logger Logger
	cfg    Config
}

// NewFlowController creates the controller.
func NewFlowController(flow *Flow, tokens *TokenService, repo RepositoryManager, cfg Config, logger Logger) *FlowController {
	if logger == nil {
		logger = defLogger{}
	}
	return &FlowController{
		Flow:   flow,
		Tokens: tokens,
		Repo:   repo,
		Logger: logger,
		cfg:    cfg,
	}
}

// RegisterRoutes mounts every endpoint on the app.
func RegisterRoutes(app *fiber.App, c *FlowController) {
	app.Get("/authenticate", c.Authenticate)
	app.Get("/initialize", c.Initialize)
	app.Get("/redirect", c.Redirect)
	app.Get("/check", c.Check)
	app.Post("/verify", c.Verify)
	app.Get("/.well-known/jwks.json", c.JWKS)
	app.Get("/i", c.ProfileShow)
	app.Put("/i", c.ProfileUpdate)
	app.Post("/register", c.Register)
}

// Authenticate is the relying party's entry point.
func (c *FlowController) Authenticate(ctx *fiber.Ctx) error {
	outcome, err := c.Flow.Authenticate(
		ctx.Context(),
		ctx.Cookies(SessionCookieName),
		ctx.Query("redirectUrl"),
		ctx.Query("postbackUrl"),
		ctx.Query("state"),
	)
	if err != nil {
		return c.errorPageRedirect(ctx, err)
	}

	if outcome.Session != nil {
		c.setSessionCookie(ctx, outcome.Session)
	}

	return ctx.Redirect(outcome.Location, fiber.StatusFound)
}

// Initialize redeems a registration code and hands the visitor to the
// account-initialization UI.
func (c *FlowController) Initialize(ctx *fiber.Ctx) error {
	outcome, err := c.Flow.Initialize(ctx.Context(), ctx.Cookies(SessionCookieName), ctx.Query("regCode"))
	if err != nil {
		return c.errorPageRedirect(ctx, err)
	}

	if outcome.Session != nil {
		c.setSessionCookie(ctx, outcome.Session)
	}

	return ctx.Redirect(outcome.Location, fiber.StatusFound)
}

// Redirect resumes a parked authentication intent.
func (c *FlowController) Redirect(ctx *fiber.Ctx) error {
	outcome, err := c.Flow.Resume(ctx.Context(), ctx.Cookies(SessionCookieName))
	if err != nil {
		return c.errorPageRedirect(ctx, err)
	}

	return ctx.Redirect(outcome.Location, fiber.StatusFound)
}

// VerifyRequest is the POST /verify payload.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// Verify lets relying parties check a token server-side. An invalid
// token is a normal answer, not an error status.
func (c *FlowController) Verify(ctx *fiber.Ctx) error {
	payload := new(VerifyRequest)
	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false})
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false})
	}

	claims := c.Tokens.VerifyToken(payload.Token)
	if claims == nil {
		return ctx.JSON(fiber.Map{"valid": false})
	}

	return ctx.JSON(fiber.Map{
		"valid":   true,
		"payload": claims,
	})
}

// Check answers 200 when the request carries a usable identity: a
// bearer token or a session cookie resolving to a user.
func (c *FlowController) Check(ctx *fiber.Ctx) error {
	sessionID := ""

	if header := ctx.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 {
			claims := c.Tokens.VerifyToken(parts[1])
			if claims == nil {
				return unauthorized(ctx)
			}
			sessionID = claims.SessionID()
		}
	}

	if sessionID == "" {
		sessionID = ctx.Cookies(SessionCookieName)
	}

	if _, err := c.resolveUser(ctx, sessionID); err != nil {
		return unauthorized(ctx)
	}

	return ctx.SendStatus(fiber.StatusOK)
}

// JWKS publishes the verification key set.
func (c *FlowController) JWKS(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Tokens.JWKS())
}

// ProfileShow returns the session-bound user and whether an unexpired
// pending redirect exists for the session.
func (c *FlowController) ProfileShow(ctx *fiber.Ctx) error {
	sessionID := ctx.Cookies(SessionCookieName)

	user, err := c.resolveUser(ctx, sessionID)
	if err != nil {
		return unauthorized(ctx)
	}

	id, _ := uuid.Parse(sessionID)
	hasPending, err := c.Repo.PendingRedirects().HasPending(ctx.Context(), id)
	if err != nil {
		c.Logger.Error("pending redirect check failed: %v", err)
		hasPending = false
	}

	return ctx.JSON(fiber.Map{
		"id":                 user.ID,
		"displayName":        user.DisplayName,
		"hasPendingRedirect": hasPending,
	})
}

// ProfileUpdatePayload is the PUT /i body.
type ProfileUpdatePayload struct {
	DisplayName *string `json:"displayName"`
}

// Validate will run validation rules
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
	)
}

// ProfileUpdate lets the user edit their profile; the first successful
// update marks the account initialized.
func (c *FlowController) ProfileUpdate(ctx *fiber.Ctx) error {
	user, err := c.resolveUser(ctx, ctx.Cookies(SessionCookieName))
	if err != nil {
		return unauthorized(ctx)
	}

	payload := new(ProfileUpdatePayload)
	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, err := c.Repo.Users().UpdateProfile(ctx.Context(), user.ID, payload.DisplayName)
	if err != nil {
		c.Logger.Error("profile update failed: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update user"})
	}

	return ctx.JSON(fiber.Map{
		"id":          updated.ID,
		"displayName": updated.DisplayName,
	})
}

// Register provisions a bare user. POST keeps casual browsers from
// minting accounts by revisiting a URL.
func (c *FlowController) Register(ctx *fiber.Ctx) error {
	user, err := c.Repo.Users().Provision(ctx.Context())
	if err != nil {
		c.Logger.Error("user provisioning failed: %v", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false})
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"userId":  user.ID,
	})
}

func (c *FlowController) resolveUser(ctx *fiber.Ctx, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, ErrSessionMissing
	}

	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrSessionMissing
	}

	return c.Repo.Sessions().ResolveUser(ctx.Context(), id)
}

func (c *FlowController) setSessionCookie(ctx *fiber.Ctx, session *Session) {
	maxAge := c.cfg.GetCookieMaxAge()
	if maxAge <= 0 {
		maxAge = 60 * 60 * 24 * 2
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID.String(),
		MaxAge:   maxAge,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// errorPageRedirect sends the browser to the configured error page with
// a machine code, a human message, and a technical detail. The caller
// is mid-redirect in a browser, so a JSON error body would go nowhere.
func (c *FlowController) errorPageRedirect(ctx *fiber.Ctx, err error) error {
	code := TextCodeRedirectFailed
	detail := err.Error()

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.TextCode != "" {
			code = richErr.TextCode
		}
		detail = richErr.Message
	}

	message, ok := flowErrorMessages[code]
	if !ok {
		message = flowErrorMessages[TextCodeRedirectFailed]
	}

	c.Logger.Warn("flow failed: code=%s detail=%s", code, detail)

	target, parseErr := url.Parse(c.cfg.GetErrorPageURL())
	if parseErr != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": message})
	}

	q := target.Query()
	q.Set("code", code)
	q.Set("message", message)
	q.Set("detail", detail)
	target.RawQuery = q.Encode()

	return ctx.Redirect(target.String(), fiber.StatusFound)
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
}
