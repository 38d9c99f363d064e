package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"mobcash_portal/internal/betid"      // Bet-ID search flow
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/middleware" // Session context
	"mobcash_portal/internal/wizard"     // Deposit/withdrawal wizard
)

// Request struct for phone create and update
type PhoneRequest struct {
	Phone   string `json:"phone" binding:"required"` // Phone number
	Network flexID `json:"network"`                  // Network id, string or number
}

// validate returns the cleaned phone, the network id and the first error message
func (r PhoneRequest) validate() (string, int, string) {
	phone := strings.TrimSpace(r.Phone)
	if !isValidPhone(phone) {
		return "", 0, "Numéro de téléphone invalide"
	}
	network, ok := r.Network.Int()
	if !ok {
		return "", 0, "Réseau requis"
	}
	return phone, network, ""
}

// ListPhonesHandler lists the saved phone numbers
func ListPhonesHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var phones []domain.UserPhone
		err := call(c, d, func(access string) error {
			var err error
			phones, err = d.Backend.ListPhones(c.Request.Context(), access)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if phones == nil {
			phones = []domain.UserPhone{} // Always return an array
		}
		c.JSON(http.StatusOK, phones)
	}
}

// CreatePhoneHandler saves a new phone number bound to a network
func CreatePhoneHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PhoneRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Numéro de téléphone invalide"})
			return
		}
		phone, network, msg := req.validate()
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		var created *domain.UserPhone
		err := call(c, d, func(access string) error {
			var err error
			created, err = d.Backend.CreatePhone(c.Request.Context(), access, phone, network)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Numéro ajouté avec succès!", "phone": created})
	}
}

// UpdatePhoneHandler edits a saved phone number
func UpdatePhoneHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req PhoneRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Numéro de téléphone invalide"})
			return
		}
		phone, network, msg := req.validate()
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		var updated *domain.UserPhone
		err := call(c, d, func(access string) error {
			var err error
			updated, err = d.Backend.UpdatePhone(c.Request.Context(), access, id, phone, network)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Numéro modifié avec succès!", "phone": updated})
	}
}

// DeletePhoneHandler removes a saved phone number
func DeletePhoneHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		err := call(c, d, func(access string) error {
			return d.Backend.DeletePhone(c.Request.Context(), access, id)
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Numéro supprimé avec succès!"})
	}
}

// ListBetIDsHandler lists the saved bet-IDs, optionally for one platform (?app=)
func ListBetIDsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ids []domain.UserAppId
		err := call(c, d, func(access string) error {
			var err error
			ids, err = d.Backend.ListBetIDs(c.Request.Context(), access, c.Query("app"))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if ids == nil {
			ids = []domain.UserAppId{} // Always return an array
		}
		c.JSON(http.StatusOK, ids)
	}
}

// DeleteBetIDHandler removes a saved bet-ID and unselects it from any open wizard
func DeleteBetIDHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		err := call(c, d, func(access string) error {
			return d.Backend.DeleteBetID(c.Request.Context(), access, id)
		})
		if err != nil {
			writeError(c, err)
			return
		}
		sid := c.GetString(middleware.KeySessionID)
		for _, kind := range []domain.TransactionType{domain.TypeDeposit, domain.TypeWithdrawal} {
			if _, err := d.Wizards.Load(c.Request.Context(), sid, kind); err != nil {
				continue // No open wizard of this kind
			}
			_, err := d.Engine.Exclusive(c.Request.Context(), sid, kind, func(w *wizard.Wizard) error {
				w.ClearBetID(id)
				return nil
			})
			if err != nil {
				logrus.WithFields(logrus.Fields{"session": sid, "kind": kind, "error": err}).Warn("wizard update failed")
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "ID de pari supprimé avec succès!"})
	}
}

// SearchBetIDHandler looks the account up on the platform and keeps it pending confirmation
func SearchBetIDHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q betid.Query // Bind JSON request to struct
		if err := c.ShouldBindJSON(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Plateforme et ID de pari requis"})
			return
		}
		sid := c.GetString(middleware.KeySessionID)
		var cand *betid.Candidate
		err := call(c, d, func(access string) error {
			var err error
			cand, err = d.BetIDs.Search(c.Request.Context(), sid, access, q)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cand)
	}
}

// CurrentBetIDHandler returns the candidate waiting for confirmation, 404 when there is none
func CurrentBetIDHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		cand, err := d.BetIDs.Current(c.Request.Context(), c.GetString(middleware.KeySessionID))
		if errors.Is(err, betid.ErrNoPending) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Aucune recherche en attente"})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cand)
	}
}

// ConfirmBetIDHandler saves the pending candidate, creating or updating the record
func ConfirmBetIDHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(middleware.KeySessionID)
		cand, err := d.BetIDs.Current(c.Request.Context(), sid)
		if err != nil {
			writeError(c, err)
			return
		}
		var saved *domain.UserAppId
		err = call(c, d, func(access string) error {
			var err error
			saved, err = d.BetIDs.Confirm(c.Request.Context(), sid, access)
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": betid.SuccessMessage(cand.Query.EditID > 0), "bet_id": saved})
	}
}

// AbandonBetIDHandler drops the pending candidate
func AbandonBetIDHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.BetIDs.Abandon(c.Request.Context(), c.GetString(middleware.KeySessionID)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
