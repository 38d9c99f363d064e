package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mobcash_portal/internal/domain"
)

func TestUSSDCode(t *testing.T) {
	code := USSDCode("0700000000", dec(5000))
	assert.Equal(t, "#144#8*0700000000*5000#", code)
	assert.Equal(t, "tel:%23144%238*0700000000*5000%23", DialURI(code))
}

func TestNetAmount(t *testing.T) {
	assert.True(t, NetAmount(dec(5000), false).Equal(dec(5000)))
	assert.True(t, NetAmount(dec(5000), true).Equal(dec(4950)))
	// fee rounds up to the next unit
	assert.True(t, NetAmount(dec(1050), true).Equal(dec(1039)))
}

func TestFeeDeductionSettingWins(t *testing.T) {
	on, off := true, false
	assert.True(t, feeDeduction(nil, true))
	assert.False(t, feeDeduction(&domain.Setting{}, false))
	assert.True(t, feeDeduction(&domain.Setting{USSDFeeDeduction: &on}, false))
	assert.False(t, feeDeduction(&domain.Setting{USSDFeeDeduction: &off}, true))
}

func TestResolvePrefersLink(t *testing.T) {
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)
	tx := &domain.Transaction{Reference: "R", TransactionLink: "https://pay.example/x"}

	res := resolve(w.Kind, tx, w.Selection, testSettings(), false)
	assert.Equal(t, ResolvedLink, res.Kind)
	assert.Equal(t, "https://pay.example/x", res.Link)
	assert.Equal(t, DashboardPath, res.Redirect)
	assert.Empty(t, res.USSDCode)
}

func TestResolveOrangeConnectDeposit(t *testing.T) {
	w := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)

	res := resolve(w.Kind, &domain.Transaction{Reference: "R"}, w.Selection, testSettings(), false)
	assert.Equal(t, ResolvedUSSD, res.Kind)
	assert.Equal(t, "#144#8*0700000000*5000#", res.USSDCode)
	assert.Equal(t, int64(500), res.DialAfter)
	assert.Equal(t, "R", res.Reference)
}

func TestResolvePlain(t *testing.T) {
	manual := testOrange("CI")
	manual.DepositAPI = domain.APIModeManual
	w := filledWizard(domain.TypeDeposit, manual, 5000)
	res := resolve(w.Kind, &domain.Transaction{}, w.Selection, testSettings(), false)
	assert.Equal(t, ResolvedPlain, res.Kind)
	assert.Equal(t, "Dépôt initié avec succès!", res.Message)

	// withdrawals never dial
	wd := filledWizard(domain.TypeWithdrawal, testOrange("CI"), 5000)
	res = resolve(wd.Kind, &domain.Transaction{}, wd.Selection, testSettings(), false)
	assert.Equal(t, ResolvedPlain, res.Kind)
	assert.Equal(t, "Retrait initié avec succès!", res.Message)

	// no merchant phone configured
	d := filledWizard(domain.TypeDeposit, testOrange("CI"), 5000)
	res = resolve(d.Kind, &domain.Transaction{}, d.Selection, &domain.Setting{}, false)
	assert.Equal(t, ResolvedPlain, res.Kind)
}
