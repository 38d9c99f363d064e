package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library

	"mobcash_portal/internal/bonus"      // Bonus deposit
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/middleware" // Session context
	"mobcash_portal/internal/wizard"     // Deposit/withdrawal wizard
)

// WizardView is the wizard as the client renders it
type WizardView struct {
	Kind          domain.TransactionType `json:"kind"`                      // deposit or withdrawal
	Step          wizard.Step            `json:"step"`                      // Active step, 1 based
	Label         string                 `json:"label"`                     // Active step label
	TotalSteps    int                    `json:"total_steps"`               // Always 5
	Selection     wizard.Selection       `json:"selection"`                 // Collected values
	Reviewing     bool                   `json:"reviewing"`                 // Confirmation requested
	StepValid     bool                   `json:"step_valid"`                // Active step predicate
	Phase         wizard.Phase           `json:"phase"`                     // Submission phase
	Message       string                 `json:"message,omitempty"`         // Network instructions
	Resolution    *wizard.Resolution     `json:"resolution,omitempty"`      // Payment action, once resolved
	Transaction   *domain.Transaction    `json:"transaction,omitempty"`     // Summary awaiting confirmation
	AutoAdvanceMs int64                  `json:"auto_advance_ms,omitempty"` // Delay before the client may advance by itself
}

// viewOf renders the wizard for the client
func viewOf(w *wizard.Wizard) WizardView {
	v := WizardView{
		Kind:       w.Kind,
		Step:       w.Step,
		Label:      w.Step.Label(),
		TotalSteps: wizard.TotalSteps,
		Selection:  w.Selection,
		Reviewing:  w.Reviewing,
		StepValid:  w.StepValid(w.Step),
		Phase:      w.State().Phase(),
	}
	if w.Step == wizard.StepAmount {
		v.Message = w.Message()
	}
	switch st := w.State().(type) {
	case wizard.AwaitingConfirmation:
		v.Transaction = &st.Transaction
	case wizard.Finalized:
		v.Transaction = &st.Transaction
	case wizard.Resolved:
		v.Resolution = &st.Resolution
	}
	// Selection steps advance on their own once filled; the amount step never does
	if v.StepValid && int(w.Step) < wizard.TotalSteps && w.Step != wizard.StepAmount {
		v.AutoAdvanceMs = wizard.AutoAdvanceDelay.Milliseconds()
	}
	return v
}

// actor identifies the current session towards the engine
func actor(c *gin.Context, access string) wizard.Actor {
	s := middleware.CurrentSession(c)
	return wizard.Actor{SessionID: s.ID, UserID: s.UserID, Access: access}
}

// wizardKind reads the :kind path parameter
func wizardKind(c *gin.Context) (domain.TransactionType, bool) {
	kind, ok := domain.ParseTransactionType(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Type de transaction inconnu"})
	}
	return kind, ok
}

// loadWizard returns the session's wizard of the given kind, creating it when there is none
func loadWizard(c *gin.Context, d *Deps, kind domain.TransactionType) (*wizard.Wizard, bool) {
	sid := c.GetString(middleware.KeySessionID)
	w, err := d.Wizards.Load(c.Request.Context(), sid, kind)
	if errors.Is(err, wizard.ErrNoWizard) {
		return wizard.New(kind), true
	}
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return w, true
}

// exclusive runs op on the session's wizard under the submission guard and saves it.
// It reports false after writing the error response.
func exclusive(c *gin.Context, d *Deps, kind domain.TransactionType, op func(w *wizard.Wizard) error) (*wizard.Wizard, bool) {
	w, err := d.Engine.Exclusive(c.Request.Context(), c.GetString(middleware.KeySessionID), kind, op)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return w, true
}

// invalidateLists drops the cached history after a submission
func invalidateLists(c *gin.Context, d *Deps) {
	sid := c.GetString(middleware.KeySessionID)
	if err := d.Lists.Invalidate(c.Request.Context(), sid); err != nil {
		logrus.WithFields(logrus.Fields{"session": sid, "error": err}).Warn("list invalidation failed")
	}
}

// StartWizardHandler opens a fresh wizard, discarding any previous one of the same kind
func StartWizardHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			*w = *wizard.New(kind)
			return nil
		})
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, viewOf(w))
	}
}

// GetWizardHandler returns the wizard in progress
func GetWizardHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		w, ok := loadWizard(c, d, kind)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// Request struct for a selection step
type SelectRequest struct {
	ID          flexID `json:"id" binding:"required"` // Selected record id
	AutoAdvance bool   `json:"auto_advance"`          // Advance right away when the step becomes valid
}

// SelectHandler applies a selection step (platform, bet-id, network, phone).
// The record is looked up from the backend lists so the wizard never holds a client supplied copy.
func SelectHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		step := c.Param("step")
		switch step {
		case "platform", "bet-id", "network", "phone":
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "Étape inconnue"})
			return
		}
		var req SelectRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sélection requise"})
			return
		}
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			if err := selectStep(c, d, w, step, req.ID); err != nil {
				return err
			}
			// The client asked to skip the delay; Next only moves when the active step is valid
			if req.AutoAdvance && w.StepValid(w.Step) && int(w.Step) < wizard.TotalSteps {
				_ = w.Next()
			}
			return nil
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// selectStep resolves the selected record and records it on the wizard
func selectStep(c *gin.Context, d *Deps, w *wizard.Wizard, step string, sel flexID) error {
	ctx := c.Request.Context()
	switch step {
	case "platform":
		var platforms []domain.Platform
		err := call(c, d, func(access string) error {
			var err error
			platforms, err = d.Lists.Platforms(ctx, access, false)
			return err
		})
		if err != nil {
			return err
		}
		p, found := domain.FindPlatform(platforms, string(sel))
		if !found {
			return wizard.ErrInvalidSelection
		}
		return w.SelectPlatform(p)
	case "bet-id":
		id, valid := sel.Int()
		if !valid || w.Selection.Platform == nil {
			return wizard.ErrInvalidSelection
		}
		var ids []domain.UserAppId
		err := call(c, d, func(access string) error {
			var err error
			ids, err = d.Backend.ListBetIDs(ctx, access, w.Selection.Platform.ID)
			return err
		})
		if err != nil {
			return err
		}
		b, found := domain.FindBetID(ids, id)
		if !found {
			return wizard.ErrInvalidSelection
		}
		return w.SelectBetID(b)
	case "network":
		id, valid := sel.Int()
		if !valid {
			return wizard.ErrInvalidSelection
		}
		var networks []domain.Network
		err := call(c, d, func(access string) error {
			var err error
			networks, err = d.Lists.Networks(ctx, access, false)
			return err
		})
		if err != nil {
			return err
		}
		n, found := domain.FindNetwork(networks, id)
		if !found {
			return wizard.ErrInvalidSelection
		}
		return w.SelectNetwork(n)
	default: // phone
		id, valid := sel.Int()
		if !valid {
			return wizard.ErrInvalidSelection
		}
		var phones []domain.UserPhone
		err := call(c, d, func(access string) error {
			var err error
			phones, err = d.Backend.ListPhones(ctx, access)
			return err
		})
		if err != nil {
			return err
		}
		p, found := domain.FindPhone(phones, id)
		if !found {
			return wizard.ErrInvalidSelection
		}
		return w.SelectPhone(p)
	}
}

// Request struct for the amount step
type AmountRequest struct {
	Amount         decimal.Decimal `json:"amount"`          // Amount, string or number
	WithdrawalCode *string         `json:"withdrawal_code"` // Withdrawals only
}

// AmountHandler records the amount and, for withdrawals, the platform code.
// Invalid values are kept so the form can show them with the error.
func AmountHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		var req AmountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Montant invalide"})
			return
		}
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			amountErr := w.SetAmount(req.Amount)
			var codeErr error
			if req.WithdrawalCode != nil {
				codeErr = w.SetWithdrawalCode(*req.WithdrawalCode)
			}
			// Step errors mean nothing was recorded; validation errors still keep the value
			for _, err := range []error{amountErr, codeErr} {
				if errors.Is(err, wizard.ErrStepNotReached) || errors.Is(err, wizard.ErrInvalidTransition) || errors.Is(err, wizard.ErrInvalidSelection) {
					return err
				}
			}
			return errors.Join(amountErr, codeErr)
		})
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// NextHandler advances one step, or opens the review on the last step
func NextHandler(d *Deps) gin.HandlerFunc {
	return stepHandler(d, (*wizard.Wizard).Next)
}

// PreviousHandler goes back one step
func PreviousHandler(d *Deps) gin.HandlerFunc {
	return stepHandler(d, (*wizard.Wizard).Previous)
}

func stepHandler(d *Deps, move func(*wizard.Wizard) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		w, ok := exclusive(c, d, kind, move)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// ConfirmHandler submits the wizard to the backend.
// The guard is held from loading the wizard until its outcome is saved.
func ConfirmHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		st := settings(c, d) // nil falls back to the default merchant numbers
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			return call(c, d, func(access string) error {
				_, err := d.Engine.Confirm(c.Request.Context(), actor(c, access), w, st)
				return err
			})
		})
		if !ok {
			return
		}
		invalidateLists(c, d)
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// FinalizeHandler accepts the transaction summary
func FinalizeHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		st := settings(c, d)
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			return call(c, d, func(access string) error {
				_, err := d.Engine.Finalize(c.Request.Context(), actor(c, access), w, st)
				return err
			})
		})
		if !ok {
			return
		}
		invalidateLists(c, d)
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// CancelHandler rejects the transaction summary
func CancelHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := wizardKind(c)
		if !ok {
			return
		}
		w, ok := exclusive(c, d, kind, func(w *wizard.Wizard) error {
			return call(c, d, func(access string) error {
				_, err := d.Engine.Cancel(c.Request.Context(), actor(c, access), w)
				return err
			})
		})
		if !ok {
			return
		}
		invalidateLists(c, d)
		c.JSON(http.StatusOK, viewOf(w))
	}
}

// Request struct for a bonus deposit
type BonusRequest struct {
	App    string          `json:"app" binding:"required"` // Platform id
	BetID  flexID          `json:"bet_id"`                 // Saved bet-ID record id
	Amount decimal.Decimal `json:"amount"`                 // Amount, string or number
}

// BonusHandler submits a deposit funded by the referral bonus
func BonusHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BonusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, bonus.ErrIncomplete)
			return
		}
		ctx := c.Request.Context()
		st := settings(c, d)
		if st == nil || !st.ReferralBonus {
			writeError(c, bonus.ErrDisabled)
			return
		}

		var platforms []domain.Platform
		var ids []domain.UserAppId
		err := call(c, d, func(access string) error {
			var err error
			if platforms, err = d.Lists.Platforms(ctx, access, false); err != nil {
				return err
			}
			ids, err = d.Backend.ListBetIDs(ctx, access, req.App)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		var r bonus.Request
		r.Amount = req.Amount
		if p, found := domain.FindPlatform(platforms, req.App); found {
			r.Platform = &p
		}
		if id, valid := req.BetID.Int(); valid {
			if b, found := domain.FindBetID(ids, id); found {
				r.BetID = &b
			}
		}

		// The floor depends on the live bonus balance, the cached profile is only a fallback
		s := middleware.CurrentSession(c)
		user := s.User
		if fresh, err := d.Sessions.RefreshUser(ctx, s); err == nil {
			user = *fresh
		} else {
			logrus.WithFields(logrus.Fields{"session": s.ID, "error": err}).Warn("profile reload failed")
		}

		var res wizard.Resolution
		err = call(c, d, func(access string) error {
			var err error
			res, err = d.Bonus.Submit(ctx, actor(c, access), r, st, &user)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		invalidateLists(c, d)
		c.JSON(http.StatusOK, gin.H{"resolution": res, "floor": bonus.Floor(*r.Platform, *st, user)})
	}
}
