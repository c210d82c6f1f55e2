package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allResults = []Result{
	TesSUCCESS,
	TecTRANSFER_FAILED, TecINSUFFICIENT_FUNDS, TecINTERNAL,
	TefFAILURE, TefNOT_OWNER, TefNO_PERMISSION, TefALREADY_LISTED,
	TefNOT_LISTED, TefINSUFFICIENT_FEE, TefINSUFFICIENT_PAYMENT,
	TefNOTHING_TO_WITHDRAW, TefBAD_AUTH, TefINTERNAL,
	TemMALFORMED, TemINVALID_PRICE, TemFEE_TOO_HIGH, TemBAD_AMOUNT,
	TemINVALID_ACCOUNT, TemBAD_SIGNATURE, TemUNKNOWN_TYPE,
	TelLOCAL_ERROR, TelFAILED_PROCESSING,
}

func TestResultClasses(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		success bool
		tec     bool
		tef     bool
		tem     bool
		tel     bool
	}{
		{"tesSUCCESS", TesSUCCESS, true, false, false, false, false},
		{"tecTRANSFER_FAILED", TecTRANSFER_FAILED, false, true, false, false, false},
		{"tecINSUFFICIENT_FUNDS", TecINSUFFICIENT_FUNDS, false, true, false, false, false},
		{"tefNOT_OWNER", TefNOT_OWNER, false, false, true, false, false},
		{"tefNOTHING_TO_WITHDRAW", TefNOTHING_TO_WITHDRAW, false, false, true, false, false},
		{"temINVALID_PRICE", TemINVALID_PRICE, false, false, false, true, false},
		{"temMALFORMED", TemMALFORMED, false, false, false, true, false},
		{"telLOCAL_ERROR", TelLOCAL_ERROR, false, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.success, tt.result.IsSuccess())
			assert.Equal(t, tt.tec, tt.result.IsTec())
			assert.Equal(t, tt.tef, tt.result.IsTef())
			assert.Equal(t, tt.tem, tt.result.IsTem())
			assert.Equal(t, tt.tel, tt.result.IsTel())
			assert.Equal(t, tt.success, tt.result.IsApplied())
		})
	}
}

func TestResultNamesAndMessages(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range allResults {
		name := r.String()
		assert.NotEqual(t, "unknown", name, "missing name for %d", int(r))
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
		assert.NotEmpty(t, r.Message(), "missing message for %s", name)
	}
	assert.Equal(t, "unknown", Result(42).String())
}

func TestResultGroupings(t *testing.T) {
	assert.True(t, TefNOT_OWNER.IsAuthorization())
	assert.True(t, TefNO_PERMISSION.IsAuthorization())
	assert.True(t, TefBAD_AUTH.IsAuthorization())
	assert.False(t, TefNOT_LISTED.IsAuthorization())

	assert.True(t, TefINSUFFICIENT_FEE.IsInsufficientValue())
	assert.True(t, TefINSUFFICIENT_PAYMENT.IsInsufficientValue())
	assert.True(t, TecINSUFFICIENT_FUNDS.IsInsufficientValue())
	assert.False(t, TecTRANSFER_FAILED.IsInsufficientValue())
}
