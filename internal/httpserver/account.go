package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/logging"
	"github.com/Skotchmaster/accounts/internal/middleware/auth"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/internal/transport"
	"github.com/Skotchmaster/accounts/internal/util"
)

type AccountHTTP struct {
	Svc *service.AccountService
}

func badBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}

func (h *AccountHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.register")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "register_error", err)
	}

	token, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, transport.TokenResponse{Token: token})
}

func (h *AccountHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login_error", err)
	}

	token, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.TokenResponse{Token: token})
}

func (h *AccountHTTP) List(c echo.Context) error {
	items, err := h.Svc.ListAccounts(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AccountHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), 0)

	res, err := h.Svc.SearchAccounts(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": res.Items,
		"meta": map[string]any{
			"page":        res.Page,
			"size":        res.Size,
			"total":       res.Total,
			"total_pages": util.TotalPages(res.Total, res.Size),
			"has_prev":    res.Page > 1,
			"has_next":    int64(res.Page*res.Size) < res.Total,
		},
	})
}

func (h *AccountHTTP) Refresh(c echo.Context) error {
	token, _ := c.Get(auth.CtxToken).(string)

	newToken, err := h.Svc.RefreshSession(c.Request().Context(), token)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.TokenResponse{Token: newToken})
}

func (h *AccountHTTP) Forgot(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.forgot")

	var req transport.ForgotRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "forgot_error", err)
	}

	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, transport.MessageResponse{
		Msg: "An e-mail has been sent to " + req.Email + " with further instructions.",
	})
}

func (h *AccountHTTP) Reset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.reset")

	var req transport.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "reset_error", err)
	}

	if err := h.Svc.CompletePasswordReset(ctx, c.Param("token"), req.Password, req.Confirm); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, transport.MessageResponse{Msg: "Password has been reset."})
}

func (h *AccountHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.profile")

	var req transport.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "profile_error", err)
	}

	profile, err := h.Svc.UpdateProfile(ctx, auth.AccountID(c), service.ProfileUpdate{
		Name:     req.Name,
		Gender:   req.Gender,
		Location: req.Location,
		Website:  req.Website,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *AccountHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.password")

	var req transport.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "password_error", err)
	}

	if err := h.Svc.ChangePassword(ctx, auth.AccountID(c), req.Password, req.Confirm); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Msg: "Password has been changed."})
}

func (h *AccountHTTP) Delete(c echo.Context) error {
	if err := h.Svc.DeleteAccount(c.Request().Context(), auth.AccountID(c)); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Msg: "Account has been deleted."})
}
