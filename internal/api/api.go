package api

import (
	"context"       // Context for backend calls
	"encoding/json" // Flexible id decoding
	"errors"        // Error matching
	"net/http"      // HTTP status codes
	"strconv"       // String conversion

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"mobcash_portal/internal/backend"    // MobCash client
	"mobcash_portal/internal/betid"      // Bet-ID search flow
	"mobcash_portal/internal/bonus"      // Bonus deposit
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/middleware" // Session context
	"mobcash_portal/internal/session"    // Portal sessions
	"mobcash_portal/internal/wizard"     // Deposit/withdrawal wizard
)

// Backend is the part of the MobCash client handlers call directly
type Backend interface {
	Register(ctx context.Context, r backend.Registration) error
	RequestOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, otp, password, confirm string) error
	EditProfile(ctx context.Context, access string, p backend.ProfileUpdate) error
	ChangePassword(ctx context.Context, access, oldPassword, newPassword, confirm string) error

	ListPhones(ctx context.Context, access string) ([]domain.UserPhone, error)
	CreatePhone(ctx context.Context, access, phone string, network int) (*domain.UserPhone, error)
	UpdatePhone(ctx context.Context, access string, id int, phone string, network int) (*domain.UserPhone, error)
	DeletePhone(ctx context.Context, access string, id int) error

	ListBetIDs(ctx context.Context, access, platformID string) ([]domain.UserAppId, error)
	DeleteBetID(ctx context.Context, access string, id int) error
}

// Sessions is what handlers need from the session manager
type Sessions interface {
	Login(ctx context.Context, emailOrPhone, password string) (*session.Session, string, error)
	Do(ctx context.Context, s *session.Session, call func(access string) error) error
	RefreshUser(ctx context.Context, s *session.Session) (*domain.User, error)
	RegisterDevice(ctx context.Context, s *session.Session, token, platform string) error
	Logout(ctx context.Context, s *session.Session) error
}

// Settings serves the backend application settings
type Settings interface {
	Get(ctx context.Context, access string) (*domain.Setting, error)
	Refresh(ctx context.Context, access string) (*domain.Setting, error)
}

// Lists serves the cached list views
type Lists interface {
	History(ctx context.Context, sessionID, access string, f backend.HistoryFilter, refresh bool) (*domain.Page[domain.Transaction], error)
	Bonuses(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Bonus], error)
	Coupons(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Coupon], error)
	Ads(ctx context.Context, sessionID, access string, refresh bool) ([]domain.Ad, error)
	Notifications(ctx context.Context, sessionID, access string, page int, refresh bool) (*domain.Page[domain.Notification], error)
	Platforms(ctx context.Context, access string, refresh bool) ([]domain.Platform, error)
	Networks(ctx context.Context, access string, refresh bool) ([]domain.Network, error)
	Invalidate(ctx context.Context, sessionID string) error
}

// Journal lists the local record of submissions
type Journal interface {
	Recent(ctx context.Context, userID int, limit int) ([]domain.Submission, error)
}

// Deps bundles what the handlers are built from
type Deps struct {
	Backend  Backend
	Sessions Sessions
	Settings Settings
	Lists    Lists
	Wizards  wizard.Store
	Engine   *wizard.Engine
	BetIDs   *betid.Flow
	Bonus    *bonus.Service
	Journal  Journal
}

// flexID accepts an id sent either as a JSON string or a number
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) Int() (int, bool) {
	v, err := strconv.Atoi(string(f))
	return v, err == nil && v > 0
}

// pathID reads a positive integer path parameter
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, def when absent or invalid
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}

// wantsRefresh reports whether the client asked to bypass caches, as on focus regain
func wantsRefresh(c *gin.Context) bool {
	v := c.Query("refresh")
	return v == "1" || v == "true"
}

// call runs a backend call with the session's token and one refresh on 401
func call(c *gin.Context, d *Deps, fn func(access string) error) error {
	s := middleware.CurrentSession(c)
	return d.Sessions.Do(c.Request.Context(), s, fn)
}

// settings returns the cached settings, nil when they cannot be obtained at all
func settings(c *gin.Context, d *Deps) *domain.Setting {
	var st *domain.Setting
	err := call(c, d, func(access string) error {
		var err error
		st, err = d.Settings.Get(c.Request.Context(), access)
		return err
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"session": middleware.CurrentSession(c).ID, "error": err}).Warn("settings unavailable")
		return nil
	}
	return st
}

// writeError maps domain and backend errors to HTTP responses
func writeError(c *gin.Context, err error) {
	var amountErr *wizard.AmountError
	var codeErr *wizard.CodeError
	var submitErr *wizard.SubmitError
	var currencyErr *betid.CurrencyError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &amountErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": amountErr.Error(), "reason": amountErr.Reason})
	case errors.As(err, &codeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": codeErr.Error()})
	case errors.As(err, &currencyErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": currencyErr.Error(), "currency": currencyErr.Currency})
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "Une transaction est déjà en cours"})
	case errors.Is(err, session.ErrExpired), errors.Is(err, backend.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expirée, veuillez vous reconnecter"})
	case errors.As(err, &submitErr):
		logrus.WithError(submitErr.Err).Warn(submitErr.Message)
		c.JSON(http.StatusBadGateway, gin.H{"error": submitErr.Message})
	case errors.Is(err, wizard.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Action impossible dans l'état actuel"})
	case errors.Is(err, wizard.ErrStepIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Veuillez compléter l'étape en cours"})
	case errors.Is(err, wizard.ErrStepNotReached):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cette étape n'est pas encore disponible"})
	case errors.Is(err, wizard.ErrInvalidSelection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Sélection invalide"})
	case errors.Is(err, wizard.ErrIncomplete), errors.Is(err, bonus.ErrIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Données de transaction incomplètes"})
	case errors.Is(err, betid.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucun compte trouvé pour cet ID"})
	case errors.Is(err, betid.ErrNoPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Aucune recherche en attente"})
	case errors.Is(err, betid.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plateforme et ID de pari requis"})
	case errors.Is(err, bonus.ErrDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Le bonus de parrainage est désactivé"})
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête refusée", "detail": apiErr.Body})
	case errors.As(err, &apiErr):
		logrus.WithError(err).Warn("backend failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Service indisponible, veuillez réessayer"})
	default:
		logrus.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
