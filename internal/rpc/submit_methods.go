package rpc

import (
	"encoding/hex"
	"encoding/json"

	"github.com/LeJamon/goMarketd/internal/core/tx"
)

// submitResponse renders the outcome of a submission. The engine result
// travels inside a success envelope: a transaction that failed with
// tecNO_LISTING was still processed, and the client reads the engine
// fields to learn what happened.
func submitResponse(txn tx.Transaction, blobHex string, res tx.ApplyResult) map[string]interface{} {
	response := map[string]interface{}{
		"engine_result":         res.Result.String(),
		"engine_result_code":    int(res.Result),
		"engine_result_message": res.Result.Message(),
		"applied":               res.Applied,
		"tx_json":               txn.Flatten(),
	}
	if blobHex != "" {
		response["tx_blob"] = blobHex
	}
	if hash, err := tx.ComputeHash(txn); err == nil {
		response["hash"] = tx.HashHex(hash)
	}
	if len(res.Events) > 0 {
		response["events"] = res.Events
	}
	return response
}

// SubmitMethod handles the submit RPC method. The transaction arrives
// as a hex-encoded canonical blob, pre-signed by the client. The
// signature is checked here; account authorization and state rules are
// the engine's job.
type SubmitMethod struct{}

func (m *SubmitMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TxBlob string `json:"tx_blob"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if request.TxBlob == "" {
		return nil, RpcErrorInvalidParams("tx_blob is required")
	}

	blob, err := hex.DecodeString(request.TxBlob)
	if err != nil {
		return nil, RpcErrorInvalidParams("tx_blob is not valid hex: " + err.Error())
	}

	txn, err := tx.DecodeBlob(blob)
	if err != nil {
		return nil, RpcErrorInvalidParams("tx_blob does not decode: " + err.Error())
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	// A blob that does not verify is still answered with an engine
	// result so clients handle one response shape.
	if err := tx.Verify(txn); err != nil {
		res := tx.ApplyResult{
			Result:  tx.TemBAD_SIGNATURE,
			Message: err.Error(),
		}
		return submitResponse(txn, request.TxBlob, res), nil
	}

	res := Services.Market.Apply(ctx.Context, txn)

	return submitResponse(txn, request.TxBlob, res), nil
}

func (m *SubmitMethod) RequiredRole() Role {
	return RoleGuest
}

func (m *SubmitMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}

// SubmitJsonMethod handles the submit_json RPC method: an admin-only
// path that accepts an unsigned transaction as plain JSON. Meant for
// local operation and scripting against a standalone server.
type SubmitJsonMethod struct{}

func (m *SubmitJsonMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TxJson json.RawMessage `json:"tx_json"`
	}

	if params != nil {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
		}
	}

	if len(request.TxJson) == 0 {
		return nil, RpcErrorInvalidParams("tx_json is required")
	}

	txn, err := tx.FromJSON(request.TxJson)
	if err != nil {
		return nil, RpcErrorInvalidParams("tx_json does not decode: " + err.Error())
	}

	if Services == nil || Services.Market == nil {
		return nil, RpcErrorInternal("Market service not available")
	}

	res := Services.Market.Apply(ctx.Context, txn)

	return submitResponse(txn, "", res), nil
}

func (m *SubmitJsonMethod) RequiredRole() Role {
	return RoleAdmin
}

func (m *SubmitJsonMethod) SupportedApiVersions() []int {
	return []int{ApiVersion1}
}
