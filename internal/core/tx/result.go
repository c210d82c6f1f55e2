package tx

// Result is the outcome of applying a transaction against the market state.
//
// Codes are grouped into classes, mirrored by the code ranges:
//
//	tes (0):          success, transaction applied
//	tec (100..199):   failure after settlement began; the transaction is
//	                  rejected and every partial effect is rolled back or
//	                  compensated, but the failure is recorded
//	tef (-199..-100): precondition failure against current state
//	tem (-299..-200): malformed transaction, independent of state
//	tel (-399..-300): local error, retry may succeed
type Result int

const (
	// TesSUCCESS means the transaction applied and all effects committed.
	TesSUCCESS Result = 0

	// tec class: settlement-stage failures (100..199).

	// TecTRANSFER_FAILED means an external transfer (ownership or funds)
	// was rejected after the transaction began settling.
	TecTRANSFER_FAILED Result = 100
	// TecINSUFFICIENT_FUNDS means the payer's bank balance could not cover
	// the declared payment.
	TecINSUFFICIENT_FUNDS Result = 101
	// TecINTERNAL means settlement hit an internal limit, such as an
	// escrow accumulator overflow.
	TecINTERNAL Result = 102

	// tef class: state precondition failures (-199..-100).

	TefFAILURE              Result = -199
	TefNOT_OWNER            Result = -198
	TefNO_PERMISSION        Result = -197
	TefALREADY_LISTED       Result = -196
	TefNOT_LISTED           Result = -195
	TefINSUFFICIENT_FEE     Result = -194
	TefINSUFFICIENT_PAYMENT Result = -193
	TefNOTHING_TO_WITHDRAW  Result = -192
	TefBAD_AUTH             Result = -191
	TefINTERNAL             Result = -190

	// tem class: malformed transactions (-299..-200).

	TemMALFORMED       Result = -299
	TemINVALID_PRICE   Result = -298
	TemFEE_TOO_HIGH    Result = -297
	TemBAD_AMOUNT      Result = -296
	TemINVALID_ACCOUNT Result = -295
	TemBAD_SIGNATURE   Result = -294
	TemUNKNOWN_TYPE    Result = -293

	// tel class: local errors (-399..-300).

	TelLOCAL_ERROR       Result = -399
	TelFAILED_PROCESSING Result = -398
)

// String returns the canonical code name, e.g. "tesSUCCESS".
func (r Result) String() string {
	switch r {
	case TesSUCCESS:
		return "tesSUCCESS"
	case TecTRANSFER_FAILED:
		return "tecTRANSFER_FAILED"
	case TecINSUFFICIENT_FUNDS:
		return "tecINSUFFICIENT_FUNDS"
	case TecINTERNAL:
		return "tecINTERNAL"
	case TefFAILURE:
		return "tefFAILURE"
	case TefNOT_OWNER:
		return "tefNOT_OWNER"
	case TefNO_PERMISSION:
		return "tefNO_PERMISSION"
	case TefALREADY_LISTED:
		return "tefALREADY_LISTED"
	case TefNOT_LISTED:
		return "tefNOT_LISTED"
	case TefINSUFFICIENT_FEE:
		return "tefINSUFFICIENT_FEE"
	case TefINSUFFICIENT_PAYMENT:
		return "tefINSUFFICIENT_PAYMENT"
	case TefNOTHING_TO_WITHDRAW:
		return "tefNOTHING_TO_WITHDRAW"
	case TefBAD_AUTH:
		return "tefBAD_AUTH"
	case TefINTERNAL:
		return "tefINTERNAL"
	case TemMALFORMED:
		return "temMALFORMED"
	case TemINVALID_PRICE:
		return "temINVALID_PRICE"
	case TemFEE_TOO_HIGH:
		return "temFEE_TOO_HIGH"
	case TemBAD_AMOUNT:
		return "temBAD_AMOUNT"
	case TemINVALID_ACCOUNT:
		return "temINVALID_ACCOUNT"
	case TemBAD_SIGNATURE:
		return "temBAD_SIGNATURE"
	case TemUNKNOWN_TYPE:
		return "temUNKNOWN_TYPE"
	case TelLOCAL_ERROR:
		return "telLOCAL_ERROR"
	case TelFAILED_PROCESSING:
		return "telFAILED_PROCESSING"
	default:
		return "unknown"
	}
}

// Message returns a human-readable description of the result.
func (r Result) Message() string {
	switch r {
	case TesSUCCESS:
		return "The transaction was applied."
	case TecTRANSFER_FAILED:
		return "An external transfer was rejected during settlement."
	case TecINSUFFICIENT_FUNDS:
		return "The payer's balance cannot cover the payment."
	case TecINTERNAL:
		return "Settlement failed on an internal limit."
	case TefFAILURE:
		return "Failed to apply the transaction."
	case TefNOT_OWNER:
		return "The account does not own the token."
	case TefNO_PERMISSION:
		return "The account is not permitted to perform this operation."
	case TefALREADY_LISTED:
		return "The token is already listed for sale."
	case TefNOT_LISTED:
		return "The token is not listed for sale."
	case TefINSUFFICIENT_FEE:
		return "The fee paid is below the current listing fee."
	case TefINSUFFICIENT_PAYMENT:
		return "The payment is below the listing price."
	case TefNOTHING_TO_WITHDRAW:
		return "The account has no pending balance to withdraw."
	case TefBAD_AUTH:
		return "The signing key does not match the account."
	case TefINTERNAL:
		return "Internal error while checking preconditions."
	case TemMALFORMED:
		return "The transaction is malformed."
	case TemINVALID_PRICE:
		return "The price is zero or above the allowed maximum."
	case TemFEE_TOO_HIGH:
		return "The fee is above the allowed maximum."
	case TemBAD_AMOUNT:
		return "An amount field is invalid."
	case TemINVALID_ACCOUNT:
		return "An account field is not a valid address."
	case TemBAD_SIGNATURE:
		return "The signature is invalid."
	case TemUNKNOWN_TYPE:
		return "The transaction type is unknown."
	case TelLOCAL_ERROR:
		return "A local error occurred."
	case TelFAILED_PROCESSING:
		return "The server failed to process the request."
	default:
		return "Unknown result code."
	}
}

// IsSuccess reports whether the transaction applied cleanly.
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec reports whether the result is a settlement-stage failure.
func (r Result) IsTec() bool {
	return r >= 100 && r <= 199
}

// IsTef reports whether the result is a state precondition failure.
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTem reports whether the transaction was malformed.
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}

// IsTel reports whether the failure was local to this server.
func (r Result) IsTel() bool {
	return r >= -399 && r <= -300
}

// IsApplied reports whether the transaction changed committed state.
// Only tes results apply; tec failures are fully rolled back.
func (r Result) IsApplied() bool {
	return r.IsSuccess()
}

// IsAuthorization reports whether the failure is an authorization error:
// the sender exists but is not allowed to perform the operation.
func (r Result) IsAuthorization() bool {
	switch r {
	case TefNOT_OWNER, TefNO_PERMISSION, TefBAD_AUTH:
		return true
	default:
		return false
	}
}

// IsInsufficientValue reports whether the failure is a value shortfall
// on fee, payment, or bank balance.
func (r Result) IsInsufficientValue() bool {
	switch r {
	case TefINSUFFICIENT_FEE, TefINSUFFICIENT_PAYMENT, TecINSUFFICIENT_FUNDS:
		return true
	default:
		return false
	}
}
