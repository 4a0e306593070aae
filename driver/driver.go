package driver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/indexdata/olebridge/common"
	"github.com/indexdata/olebridge/config"
	"github.com/indexdata/olebridge/dbutil"
	"github.com/indexdata/olebridge/httpclient"
	"github.com/indexdata/olebridge/ole"
	"github.com/indexdata/olebridge/oleclient"
	"github.com/indexdata/olebridge/patron"
)

// Driver is the set of ILS operations offered to the front end.
type Driver interface {
	GetConfig(function string) (map[string]any, bool)

	PatronLogin(ctx common.ExtendedContext, barcode string, login string) (*Patron, error)

	GetMyProfile(ctx common.ExtendedContext, patron Patron) (*Profile, error)

	GetMyTransactions(ctx common.ExtendedContext, patron Patron) ([]Transaction, error)

	GetMyFines(ctx common.ExtendedContext, patron Patron) ([]Fine, error)

	GetMyHolds(ctx common.ExtendedContext, patron Patron) ([]Hold, error)

	GetRecord(ctx common.ExtendedContext, id string) (*ole.Node, error)

	GetStatus(ctx common.ExtendedContext, id string) ([]ItemStatus, error)

	GetStatuses(ctx common.ExtendedContext, ids []string) ([][]ItemStatus, error)

	GetHolding(ctx common.ExtendedContext, id string, patron *Patron) ([]Holding, error)

	PlaceHold(ctx common.ExtendedContext, details HoldDetails) (*HoldResult, error)

	GetPickUpLocations(patron *Patron) []PickUpLocation

	GetDefaultPickUpLocation(patron *Patron) string

	GetRenewDetails(transaction Transaction) string

	RenewMyItems(ctx common.ExtendedContext, details RenewDetails) (*RenewResult, error)

	GetPurchaseHistory(id string) []any
}

// IlsError is returned by every operation that fails in a backend. Its
// message is that of the underlying error.
type IlsError struct {
	Op  string
	Err error
}

func (e *IlsError) Error() string {
	return e.Err.Error()
}

func (e *IlsError) Unwrap() error {
	return e.Err
}

type OleDriver struct {
	cfg     *config.Config
	circ    oleclient.CirculationClient
	doc     oleclient.DocstoreClient
	patrons patron.Store
	// Now is the clock used to decide hold availability.
	Now func() time.Time
	// RenewalCheck decides renewability of a loan when renewals are checked up front.
	RenewalCheck func(patronId string, itemId string) (string, bool)
}

func New(cfg *config.Config, circ oleclient.CirculationClient, doc oleclient.DocstoreClient, patrons patron.Store) (*OleDriver, error) {
	if cfg == nil {
		return nil, &IlsError{Op: "init", Err: config.ErrNoConfig}
	}
	return &OleDriver{cfg: cfg, circ: circ, doc: doc, patrons: patrons, Now: time.Now}, nil
}

// DataSource returns the database/sql driver name and DSN for the patron store.
func DataSource(cfg *config.Config) (string, string, error) {
	c := cfg.Catalog
	if c.Dsn != "" {
		return c.Driver, c.Dsn, nil
	}
	charset := ""
	if c.Driver == dbutil.Mysql {
		charset = c.Charset
	}
	dsn, err := dbutil.GetConnectionString(c.Driver, c.User, c.Password, c.Host, dbutil.PortString(c.Driver, c.Port), c.Database, charset)
	return c.Driver, dsn, err
}

// schema qualifies the patron tables: the database name, or main for sqlite.
func schema(cfg *config.Config) string {
	if cfg.Catalog.Driver == dbutil.Sqlite {
		return "main"
	}
	return cfg.Catalog.Database
}

// Init connects the driver to the patron database and OLE services described by cfg.
func Init(ctx context.Context, cfg *config.Config, maxResponseSize int64) (*OleDriver, error) {
	if cfg == nil {
		return nil, &IlsError{Op: "init", Err: config.ErrNoConfig}
	}
	driverName, dsn, err := DataSource(cfg)
	if err != nil {
		return nil, &IlsError{Op: "init", Err: err}
	}
	db, err := dbutil.OpenDb(ctx, driverName, dsn)
	if err != nil {
		return nil, &IlsError{Op: "init", Err: err}
	}
	store, err := patron.NewStore(db, dbutil.Dialect(driverName), schema(cfg), cfg.Catalog.LoginField, cfg.Catalog.Charset)
	if err != nil {
		db.Close()
		return nil, &IlsError{Op: "init", Err: err}
	}
	client := &http.Client{Timeout: cfg.Catalog.Timeout}
	circ := oleclient.NewCirculationClient(client, cfg.Catalog.CirculationService, cfg.Catalog.OperatorId, maxResponseSize)
	doc := oleclient.NewDocstoreClient(client, cfg.Catalog.DocstoreService, maxResponseSize)
	return New(cfg, circ, doc, store)
}

func (d *OleDriver) Close() error {
	if d.patrons != nil {
		return d.patrons.Close()
	}
	return nil
}

func (d *OleDriver) fail(ctx common.ExtendedContext, op string, start time.Time, err error) error {
	ctx.Logger().Error(op+" failed", "error", err, "duration", time.Since(start))
	return &IlsError{Op: op, Err: err}
}

func (d *OleDriver) done(ctx common.ExtendedContext, op string, start time.Time, args ...any) {
	ctx.Logger().Debug(op, append(args, "duration", time.Since(start))...)
}

func (d *OleDriver) GetConfig(function string) (map[string]any, bool) {
	return d.cfg.Section(function)
}

// PatronLogin returns nil without error when barcode and login match no patron.
func (d *OleDriver) PatronLogin(ctx common.ExtendedContext, barcode string, login string) (*Patron, error) {
	start := time.Now()
	if d.patrons == nil {
		return nil, d.fail(ctx, "patronLogin", start, fmt.Errorf("patron store not configured"))
	}
	row, err := d.patrons.Login(ctx, barcode, login)
	if err != nil {
		return nil, d.fail(ctx, "patronLogin", start, err)
	}
	d.done(ctx, "patronLogin", start, "found", row != nil)
	if row == nil {
		return nil, nil
	}
	return &Patron{
		Id:          row.Id,
		FirstName:   row.FirstName.String,
		LastName:    row.LastName.String,
		CatUsername: barcode,
		CatPassword: login,
	}, nil
}

func (d *OleDriver) GetMyProfile(ctx common.ExtendedContext, p Patron) (*Profile, error) {
	start := time.Now()
	doc, err := d.circ.LookupUser(ctx, p.Id)
	if err != nil {
		return nil, d.fail(ctx, "getMyProfile", start, err)
	}
	email := ""
	profile := &Profile{Patron: p}
	profile.Email = &email
	if v := doc.ChildText("patronName", "firstName"); v != "" {
		profile.FirstName = v
	}
	if v := doc.ChildText("patronName", "lastName"); v != "" {
		profile.LastName = v
	}
	if v := doc.ChildText("patronEmail", "emailAddress"); v != "" {
		profile.Email = &v
	}
	profile.Address1 = doc.ChildText("patronAddress", "line1")
	profile.Address2 = optional(doc.ChildText("patronAddress", "line2"))
	profile.Zip = doc.ChildText("patronAddress", "postalCode")
	profile.Phone = doc.ChildText("patronPhone", "phoneNumber")
	d.done(ctx, "getMyProfile", start)
	return profile, nil
}

func (d *OleDriver) GetMyTransactions(ctx common.ExtendedContext, p Patron) ([]Transaction, error) {
	start := time.Now()
	doc, err := d.circ.GetCheckedOutItems(ctx, p.Id)
	if err != nil {
		return nil, d.fail(ctx, "getMyTransactions", start, err)
	}
	list := []Transaction{}
	for _, item := range doc.FindAll("", "checkOutItem") {
		renew := renewData{message: "renewable", renewable: true}
		if d.cfg.CheckRenewalsUpFront() {
			renew = d.isRenewable(p.Id, item.ChildText("itemId"))
		}
		list = append(list, toTransaction(item, renew))
	}
	d.done(ctx, "getMyTransactions", start, "count", len(list))
	return list, nil
}

// isRenewable has no OLE counterpart; without a RenewalCheck every loan is renewable.
func (d *OleDriver) isRenewable(patronId string, itemId string) renewData {
	if d.RenewalCheck == nil {
		return renewData{message: "renewable", renewable: true}
	}
	message, renewable := d.RenewalCheck(patronId, itemId)
	return renewData{message: message, renewable: renewable}
}

func (d *OleDriver) GetMyFines(ctx common.ExtendedContext, p Patron) ([]Fine, error) {
	start := time.Now()
	doc, err := d.circ.GetFines(ctx, p.Id)
	if err != nil {
		return nil, d.fail(ctx, "getMyFines", start, err)
	}
	list := []Fine{}
	for _, item := range doc.FindAll("", "fineItem") {
		list = append(list, toFine(item))
	}
	d.done(ctx, "getMyFines", start, "count", len(list))
	return list, nil
}

func (d *OleDriver) GetMyHolds(ctx common.ExtendedContext, p Patron) ([]Hold, error) {
	start := time.Now()
	doc, err := d.circ.GetHolds(ctx, p.Id)
	if err != nil {
		return nil, d.fail(ctx, "getMyHolds", start, err)
	}
	now := d.now()
	list := []Hold{}
	for _, item := range doc.FindAll("", "hold") {
		list = append(list, toHold(item, now))
	}
	d.done(ctx, "getMyHolds", start, "count", len(list))
	return list, nil
}

func (d *OleDriver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *OleDriver) GetRecord(ctx common.ExtendedContext, id string) (*ole.Node, error) {
	start := time.Now()
	doc, err := d.doc.GetInstanceDetails(ctx, id)
	if err != nil {
		return nil, d.fail(ctx, "getRecord", start, err)
	}
	d.done(ctx, "getRecord", start, "id", id)
	return doc, nil
}

func (d *OleDriver) GetStatus(ctx common.ExtendedContext, id string) ([]ItemStatus, error) {
	doc, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := summarize(doc)
	list := []ItemStatus{}
	for _, item := range doc.FindAll(ole.NsInstance, "item") {
		list = append(list, toItemStatus(id, item, summary))
	}
	return list, nil
}

// GetStatuses stops at the first id that fails.
func (d *OleDriver) GetStatuses(ctx common.ExtendedContext, ids []string) ([][]ItemStatus, error) {
	list := make([][]ItemStatus, 0, len(ids))
	for _, id := range ids {
		status, err := d.GetStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		list = append(list, status)
	}
	return list, nil
}

func (d *OleDriver) GetHolding(ctx common.ExtendedContext, id string, p *Patron) ([]Holding, error) {
	doc, err := d.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := summarize(doc)
	list := []Holding{}
	for _, item := range doc.FindAll(ole.NsInstance, "item") {
		list = append(list, toHolding(id, item, summary, p))
	}
	return list, nil
}

func (d *OleDriver) PlaceHold(ctx common.ExtendedContext, details HoldDetails) (*HoldResult, error) {
	start := time.Now()
	res, err := d.circ.PlaceRequest(ctx, details.Patron.Id, details.Barcode, ole.RequestTypePageHold)
	if err != nil {
		return nil, d.fail(ctx, "placeHold", start, err)
	}
	result := &HoldResult{Success: placeHoldSucceeded(res.Message), SysMessage: res.Message}
	d.done(ctx, "placeHold", start, "barcode", details.Barcode, "success", result.Success)
	return result, nil
}

func (d *OleDriver) GetPickUpLocations(p *Patron) []PickUpLocation {
	return d.cfg.Holds.PickUpLocations
}

func (d *OleDriver) GetDefaultPickUpLocation(p *Patron) string {
	return d.cfg.Holds.DefaultPickUpLocation
}

func (d *OleDriver) GetRenewDetails(transaction Transaction) string {
	return transaction.ItemId + "," + transaction.Id
}

// RenewMyItems renews each "<barcode>,<id>" entry. A renewal the service
// rejects or answers without usable XML is reported unsuccessful with the
// body; only a failure to reach the service aborts the batch.
func (d *OleDriver) RenewMyItems(ctx common.ExtendedContext, details RenewDetails) (*RenewResult, error) {
	result := &RenewResult{Details: map[string]RenewItemResult{}}
	for _, detail := range details.Details {
		start := time.Now()
		barcode, _, _ := strings.Cut(detail, ",")
		res, err := d.circ.RenewItem(ctx, details.Patron.Id, barcode)
		item := RenewItemResult{ItemId: barcode}
		var httpErr *httpclient.HttpError
		switch {
		case errors.As(err, &httpErr):
			ctx.Logger().Warn("renewMyItems rejected", "barcode", barcode, "status", httpErr.StatusCode)
			item.SysMessage = string(httpErr.Body)
		case err != nil && res == nil:
			return nil, d.fail(ctx, "renewMyItems", start, err)
		case err != nil:
			ctx.Logger().Warn("renewMyItems unparsed response", "barcode", barcode, "error", err)
			item.SysMessage = res.Raw
		default:
			// judged like a hold request instead of always failing with the raw body
			item.Success = placeHoldSucceeded(res.Message)
			item.SysMessage = res.Message
		}
		result.Details[barcode] = item
		d.done(ctx, "renewMyItems", start, "barcode", barcode, "success", item.Success)
	}
	return result, nil
}

func (d *OleDriver) GetPurchaseHistory(id string) []any {
	return []any{}
}
