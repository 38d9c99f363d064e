package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework

	"mobcash_portal/internal/backend"    // MobCash client
	"mobcash_portal/internal/domain"     // Domain models
	"mobcash_portal/internal/middleware" // Session context
)

// maxPageSize caps the page size forwarded to the backend
const maxPageSize = 100

// TransactionsHandler serves the filtered transaction history
func TransactionsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := backend.HistoryFilter{
			Page:     queryInt(c, "page", 1),
			PageSize: min(queryInt(c, "page_size", 10), maxPageSize),
			Network:  queryInt(c, "network", 0),
			Search:   strings.TrimSpace(c.Query("search")),
			Status:   domain.TransactionStatus(c.Query("status")),
		}
		if t := c.Query("type_trans"); t != "" {
			kind, ok := domain.ParseTransactionType(t)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Type de transaction inconnu"})
				return
			}
			f.TypeTrans = kind
		}
		sid := c.GetString(middleware.KeySessionID)
		var page *domain.Page[domain.Transaction]
		err := call(c, d, func(access string) error {
			var err error
			page, err = d.Lists.History(c.Request.Context(), sid, access, f, wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// BonusesHandler serves the bonus history
func BonusesHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(middleware.KeySessionID)
		var page *domain.Page[domain.Bonus]
		err := call(c, d, func(access string) error {
			var err error
			page, err = d.Lists.Bonuses(c.Request.Context(), sid, access, queryInt(c, "page", 1), wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// NotificationsHandler serves the user's notifications
func NotificationsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(middleware.KeySessionID)
		var page *domain.Page[domain.Notification]
		err := call(c, d, func(access string) error {
			var err error
			page, err = d.Lists.Notifications(c.Request.Context(), sid, access, queryInt(c, "page", 1), wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// CouponsHandler serves the coupon list
func CouponsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(middleware.KeySessionID)
		var page *domain.Page[domain.Coupon]
		err := call(c, d, func(access string) error {
			var err error
			page, err = d.Lists.Coupons(c.Request.Context(), sid, access, queryInt(c, "page", 1), wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// AdsHandler serves the enabled announcements
func AdsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(middleware.KeySessionID)
		var ads []domain.Ad
		err := call(c, d, func(access string) error {
			var err error
			ads, err = d.Lists.Ads(c.Request.Context(), sid, access, wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if ads == nil {
			ads = []domain.Ad{} // Always return an array
		}
		c.JSON(http.StatusOK, ads)
	}
}

// SettingsHandler serves the application settings
func SettingsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var st *domain.Setting
		err := call(c, d, func(access string) error {
			var err error
			if wantsRefresh(c) {
				st, err = d.Settings.Refresh(c.Request.Context(), access)
			} else {
				st, err = d.Settings.Get(c.Request.Context(), access)
			}
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// PlatformsHandler serves the betting platforms
func PlatformsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var platforms []domain.Platform
		err := call(c, d, func(access string) error {
			var err error
			platforms, err = d.Lists.Platforms(c.Request.Context(), access, wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if platforms == nil {
			platforms = []domain.Platform{} // Always return an array
		}
		c.JSON(http.StatusOK, platforms)
	}
}

// NetworksHandler serves the mobile-money networks, only those active for ?type= when given
func NetworksHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var networks []domain.Network
		err := call(c, d, func(access string) error {
			var err error
			networks, err = d.Lists.Networks(c.Request.Context(), access, wantsRefresh(c))
			return err
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if t := c.Query("type"); t != "" {
			kind, ok := domain.ParseTransactionType(t)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Type de transaction inconnu"})
				return
			}
			networks = domain.FilterNetworks(networks, kind)
		}
		if networks == nil {
			networks = []domain.Network{} // Always return an array
		}
		c.JSON(http.StatusOK, networks)
	}
}

// SubmissionsHandler lists the local journal of the user's recent submissions
func SubmissionsHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := min(queryInt(c, "limit", 20), maxPageSize)
		subs, err := d.Journal.Recent(c.Request.Context(), c.GetInt(middleware.KeyUserID), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		if subs == nil {
			subs = []domain.Submission{} // Always return an array
		}
		c.JSON(http.StatusOK, subs)
	}
}
