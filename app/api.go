package app

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/indexdata/olebridge/common"
	"github.com/indexdata/olebridge/driver"
	"github.com/indexdata/olebridge/httpclient"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxRequestSize = 64 * 1024

type Api struct {
	driver driver.Driver
}

type ErrorMessage struct {
	Error string `json:"error"`
}

type LoginRequest struct {
	Barcode string `json:"barcode"`
	Login   string `json:"login"`
}

type RenewDetailsResponse struct {
	Details string `json:"details"`
}

func (a *Api) extCtx(r *http.Request) common.ExtendedContext {
	requestId := r.Header.Get("X-Request-Id")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	args := &common.LoggerArgs{
		RequestId: requestId,
		PatronId:  r.URL.Query().Get("patronId"),
		Other:     map[string]string{"method": r.Method, "path": r.URL.Path},
	}
	// {id} names a patron below /patron/ and a record below /records/
	if strings.HasPrefix(r.URL.Path, "/patron/") {
		args.PatronId = r.PathValue("id")
	} else {
		args.RecordId = r.PathValue("id")
	}
	return common.CreateExtCtxWithArgs(r.Context(), args)
}

func writeJson(ctx common.ExtendedContext, w http.ResponseWriter, status int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		ctx.Logger().Error("failed to marshal response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(httpclient.ContentType, "application/json")
	w.WriteHeader(status)
	_, err = w.Write(buf)
	if err != nil {
		ctx.Logger().Warn("failed to write response", "error", err)
	}
}

func writeError(ctx common.ExtendedContext, w http.ResponseWriter, status int, message string) {
	writeJson(ctx, w, status, ErrorMessage{Error: message})
}

// writeDriverError maps driver failures: errors from OLE or the patron
// database are reported as 502.
func writeDriverError(ctx common.ExtendedContext, w http.ResponseWriter, err error) {
	var ilsErr *driver.IlsError
	if errors.As(err, &ilsErr) {
		writeError(ctx, w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(ctx, w, http.StatusInternalServerError, err.Error())
}

func readJson(r *http.Request, v any) error {
	buf, err := io.ReadAll(httpclient.NewLimitErrorReader(r.Body, maxRequestSize))
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

func (a *Api) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	function := r.PathValue("function")
	section, ok := a.driver.GetConfig(function)
	if !ok {
		writeError(ctx, w, http.StatusNotFound, "no configuration for "+function)
		return
	}
	writeJson(ctx, w, http.StatusOK, section)
}

func (a *Api) PatronLogin(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	var req LoginRequest
	if err := readJson(r, &req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Barcode == "" || req.Login == "" {
		writeError(ctx, w, http.StatusBadRequest, "barcode and login are required")
		return
	}
	patron, err := a.driver.PatronLogin(ctx, req.Barcode, req.Login)
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	if patron == nil {
		writeError(ctx, w, http.StatusUnauthorized, "login failed")
		return
	}
	writeJson(ctx, w, http.StatusOK, patron)
}

func pathPatron(r *http.Request) driver.Patron {
	return driver.Patron{Id: r.PathValue("id")}
}

func (a *Api) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	profile, err := a.driver.GetMyProfile(ctx, pathPatron(r))
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, profile)
}

func (a *Api) GetMyTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	list, err := a.driver.GetMyTransactions(ctx, pathPatron(r))
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetMyFines(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	list, err := a.driver.GetMyFines(ctx, pathPatron(r))
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetMyHolds(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	list, err := a.driver.GetMyHolds(ctx, pathPatron(r))
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	list, err := a.driver.GetStatus(ctx, r.PathValue("id"))
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		writeError(ctx, w, http.StatusBadRequest, "at least one id is required")
		return
	}
	list, err := a.driver.GetStatuses(ctx, ids)
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetHolding(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	var patron *driver.Patron
	if patronId := r.URL.Query().Get("patronId"); patronId != "" {
		patron = &driver.Patron{Id: patronId}
	}
	list, err := a.driver.GetHolding(ctx, r.PathValue("id"), patron)
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, list)
}

func (a *Api) GetPurchaseHistory(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	writeJson(ctx, w, http.StatusOK, a.driver.GetPurchaseHistory(r.PathValue("id")))
}

func (a *Api) PlaceHold(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	var details driver.HoldDetails
	if err := readJson(r, &details); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if details.Patron.Id == "" || details.Barcode == "" {
		writeError(ctx, w, http.StatusBadRequest, "patron.id and barcode are required")
		return
	}
	result, err := a.driver.PlaceHold(ctx, details)
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, result)
}

func (a *Api) GetPickUpLocations(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	writeJson(ctx, w, http.StatusOK, a.driver.GetPickUpLocations(nil))
}

func (a *Api) GetDefaultPickUpLocation(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	writeJson(ctx, w, http.StatusOK, a.driver.GetDefaultPickUpLocation(nil))
}

func (a *Api) GetRenewDetails(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	var transaction driver.Transaction
	if err := readJson(r, &transaction); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	writeJson(ctx, w, http.StatusOK, RenewDetailsResponse{Details: a.driver.GetRenewDetails(transaction)})
}

func (a *Api) RenewMyItems(w http.ResponseWriter, r *http.Request) {
	ctx := a.extCtx(r)
	var details driver.RenewDetails
	if err := readJson(r, &details); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if details.Patron.Id == "" {
		writeError(ctx, w, http.StatusBadRequest, "patron.id is required")
		return
	}
	result, err := a.driver.RenewMyItems(ctx, details)
	if err != nil {
		writeDriverError(ctx, w, err)
		return
	}
	writeJson(ctx, w, http.StatusOK, result)
}
