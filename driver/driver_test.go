package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/indexdata/olebridge/common"
	"github.com/indexdata/olebridge/config"
	"github.com/indexdata/olebridge/dbutil"
	"github.com/indexdata/olebridge/httpclient"
	"github.com/indexdata/olebridge/ole"
	"github.com/indexdata/olebridge/oleclient"
	"github.com/indexdata/olebridge/olemock"
	"github.com/indexdata/olebridge/patron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
var circAddress string
var docAddress string
var appCtx = common.CreateExtCtxWithArgs(context.Background(), &common.LoggerArgs{RequestId: "test"})

func TestMain(m *testing.M) {
	oleMock := &olemock.OleMock{Now: func() time.Time { return fixedNow }}
	server := httptest.NewServer(oleMock.Mux())
	circAddress = server.URL + olemock.CirculationPath
	docAddress = server.URL + olemock.DocstorePath
	code := m.Run()
	server.Close()
	os.Exit(code)
}

func sqliteConfig(t *testing.T, extra string) *config.Config {
	file := filepath.Join(t.TempDir(), "ole.db")
	u, err := dbutil.GetMigrateUrl(dbutil.Sqlite, file)
	assert.NoError(t, err)
	_, _, _, err = dbutil.RunMigrateScripts("file://../migrations/sqlite3", u)
	assert.NoError(t, err)
	cfg, err := config.Parse(`
[Catalog]
driver = "sqlite3"
database = "` + file + `"
circulation_service = "` + circAddress + `"
docstore_service = "` + docAddress + `"
timeout = "5s"

[Holds]
defaultPickUpLocation = "1"
` + extra)
	assert.NoError(t, err)
	return cfg
}

func newDriver(t *testing.T) *OleDriver {
	d, err := Init(context.Background(), sqliteConfig(t, ""), 0)
	assert.NoError(t, err)
	d.Now = func() time.Time { return fixedNow }
	t.Cleanup(func() { d.Close() })
	return d
}

func TestInitNoConfig(t *testing.T) {
	_, err := Init(context.Background(), nil, 0)
	assert.EqualError(t, err, "configuration needs to be set")
	var ilsErr *IlsError
	assert.True(t, errors.As(err, &ilsErr))
	assert.Equal(t, "init", ilsErr.Op)
	assert.ErrorIs(t, err, config.ErrNoConfig)

	_, err = New(nil, nil, nil, nil)
	assert.ErrorIs(t, err, config.ErrNoConfig)
}

func TestInitBadDriver(t *testing.T) {
	cfg, err := config.Parse("[Catalog]\ndriver = \"oracle\"\n")
	assert.NoError(t, err)
	_, err = Init(context.Background(), cfg, 0)
	assert.ErrorContains(t, err, "unsupported database driver: oracle")
}

func TestInitBadLoginField(t *testing.T) {
	cfg := sqliteConfig(t, "")
	cfg.Catalog.LoginField = "--"
	_, err := Init(context.Background(), cfg, 0)
	assert.ErrorContains(t, err, "invalid login field")
}

func TestDataSource(t *testing.T) {
	cfg, err := config.Parse(`
[Catalog]
database = "ole"
host = "db"
user = "u"
password = "p"
charset = "latin1"
`)
	assert.NoError(t, err)
	name, dsn, err := DataSource(cfg)
	assert.NoError(t, err)
	assert.Equal(t, dbutil.Mysql, name)
	assert.Equal(t, "u:p@tcp(db:3306)/ole?charset=latin1", dsn)
	assert.Equal(t, "ole", schema(cfg))

	cfg.Catalog.Driver = dbutil.Pgx
	cfg.Catalog.Dsn = "postgres://x@y/z"
	name, dsn, err = DataSource(cfg)
	assert.NoError(t, err)
	assert.Equal(t, dbutil.Pgx, name)
	assert.Equal(t, "postgres://x@y/z", dsn)

	cfg.Catalog.Driver = dbutil.Sqlite
	assert.Equal(t, "main", schema(cfg))
}

func TestGetConfig(t *testing.T) {
	d := newDriver(t)
	holds, ok := d.GetConfig("Holds")
	assert.True(t, ok)
	assert.Equal(t, "1", holds["defaultPickUpLocation"])
	_, ok = d.GetConfig("Nothing")
	assert.False(t, ok)
}

func TestPatronLogin(t *testing.T) {
	d := newDriver(t)
	p, err := d.PatronLogin(appCtx, "10100055", "Lovelace")
	assert.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, "10100055U", p.Id)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "10100055", p.CatUsername)
	assert.Equal(t, "Lovelace", p.CatPassword)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.Major)
	assert.Nil(t, p.College)

	p, err = d.PatronLogin(appCtx, "10100055", "wrong")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestPatronLoginNoStore(t *testing.T) {
	d, err := New(sqliteConfig(t, ""), nil, nil, nil)
	assert.NoError(t, err)
	_, err = d.PatronLogin(appCtx, "a", "b")
	assert.ErrorContains(t, err, "patron store not configured")
	assert.NoError(t, d.Close())
}

func TestGetMyProfile(t *testing.T) {
	d := newDriver(t)
	p := Patron{Id: "10100055U", FirstName: "A", LastName: "L", CatUsername: "10100055"}
	profile, err := d.GetMyProfile(appCtx, p)
	assert.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "Lovelace", profile.LastName)
	assert.Equal(t, "ada@example.org", *profile.Email)
	assert.Equal(t, "12 St James's Square", profile.Address1)
	assert.Nil(t, profile.Address2)
	assert.Equal(t, "SW1Y 4JH", profile.Zip)
	assert.Equal(t, "555-0100", profile.Phone)
	assert.Equal(t, "", profile.Group)
	assert.Equal(t, "10100055", profile.CatUsername)
}

func TestGetMyProfileBlankDefaults(t *testing.T) {
	circ := new(MockCirculationClient)
	doc, _ := ole.Parse([]byte("<lookupUser><patronAddress><line2>Flat 2</line2></patronAddress></lookupUser>"))
	circ.On("LookupUser", "p1").Return(doc, nil)
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)
	profile, err := d.GetMyProfile(appCtx, Patron{Id: "p1", FirstName: "F", LastName: "L"})
	assert.NoError(t, err)
	assert.Equal(t, "F", profile.FirstName)
	assert.Equal(t, "L", profile.LastName)
	assert.Equal(t, "", *profile.Email)
	assert.Equal(t, "", profile.Address1)
	assert.Equal(t, "Flat 2", *profile.Address2)
	assert.Equal(t, "", profile.Zip)
}

func TestGetMyProfileUnknownPatron(t *testing.T) {
	d := newDriver(t)
	_, err := d.GetMyProfile(appCtx, Patron{Id: "f1"})
	var ilsErr *IlsError
	assert.True(t, errors.As(err, &ilsErr))
	assert.Equal(t, "getMyProfile", ilsErr.Op)
	var httpErr *httpclient.HttpError
	assert.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.ErrorContains(t, err, "Unknown patron: f1")
}

func TestGetMyTransactions(t *testing.T) {
	d := newDriver(t)
	list, err := d.GetMyTransactions(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, Transaction{
		Id:        "1458569",
		ItemId:    "33165972443029224",
		DueDate:   "2025-03-28",
		DueTime:   "23:59:00",
		DueStatus: "",
		Title:     "The Go Programming Language",
		Renewable: true,
		Message:   "renewable",
	}, list[0])
	assert.Equal(t, "overdue", list[1].DueStatus)
	assert.Equal(t, unknownTitle, list[1].Title)
	assert.Equal(t, "1458570", list[1].Id)
}

func TestGetMyTransactionsUpFrontCheck(t *testing.T) {
	d := newDriver(t)
	var checked []string
	d.RenewalCheck = func(patronId string, itemId string) (string, bool) {
		checked = append(checked, patronId+"/"+itemId)
		return "on hold for another patron", false
	}
	list, err := d.GetMyTransactions(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.Len(t, checked, 2)
	assert.Equal(t, "p1/", checked[0][:3])
	assert.False(t, list[0].Renewable)
	assert.Equal(t, "on hold for another patron", list[0].Message)
}

func TestGetMyTransactionsNoUpFrontCheck(t *testing.T) {
	d, err := Init(context.Background(), sqliteConfig(t, "[Renewals]\ncheckUpFront = false\n"), 0)
	assert.NoError(t, err)
	defer d.Close()
	d.RenewalCheck = func(patronId string, itemId string) (string, bool) {
		t.Fatal("renewals must not be checked up front")
		return "", false
	}
	list, err := d.GetMyTransactions(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.True(t, list[0].Renewable)
	assert.Equal(t, "renewable", list[0].Message)
}

func TestGetMyTransactionsEmpty(t *testing.T) {
	circ := new(MockCirculationClient)
	doc, _ := ole.Parse([]byte("<getCheckedOutItems><message>No items</message></getCheckedOutItems>"))
	circ.On("GetCheckedOutItems", "p1").Return(doc, nil)
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)
	list, err := d.GetMyTransactions(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.NotNil(t, list)
	assert.Len(t, list, 0)
}

func TestGetMyFines(t *testing.T) {
	d := newDriver(t)
	list, err := d.GetMyFines(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.Equal(t, []Fine{
		{Amount: "2.50", Balance: "2.50", Id: "wbm-1458570"},
		{Amount: "40.00", Balance: "15.00", Id: "wbm-1458571"},
	}, list)
}

func TestGetMyHolds(t *testing.T) {
	d := newDriver(t)
	list, err := d.GetMyHolds(appCtx, Patron{Id: "p1"})
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, Hold{
		Id:        "1458569",
		ItemId:    "33165972443029224",
		Type:      ole.RequestTypePageHold,
		Expire:    "2025-04-14",
		Create:    "2025-03-04",
		Position:  "1",
		Available: true,
		ReqNum:    "1001",
		Title:     "The Go Programming Language",
	}, list[0])
	assert.False(t, list[1].Available)
	assert.Equal(t, unknownTitle, list[1].Title)
}

func TestGetStatus(t *testing.T) {
	d := newDriver(t)
	list, err := d.GetStatus(appCtx, "1458569")
	assert.NoError(t, err)
	assert.Equal(t, []ItemStatus{
		{Id: "1458569", Availability: true, Status: "AVAILABLE", Location: "UC/MAIN/", CallNumber: "QA76.73.G63 D66 2015"},
		{Id: "1458569", Availability: false, Status: "LOANED", Location: "UC/MAIN/", CallNumber: "QA76.73.G63 D66 2015"},
	}, list)

	list, err = d.GetStatus(appCtx, "f1")
	assert.NoError(t, err)
	assert.Len(t, list, 0)
}

func TestGetStatuses(t *testing.T) {
	d := newDriver(t)
	list, err := d.GetStatuses(appCtx, []string{"1", "f2", "3"})
	assert.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Len(t, list[0], 2)
	assert.Len(t, list[1], 0)
	assert.Equal(t, "3", list[2][0].Id)
}

func TestGetStatusesError(t *testing.T) {
	doc := new(MockDocstoreClient)
	doc.On("GetInstanceDetails", "1").Return(nil, errors.New("connection refused"))
	d, err := New(sqliteConfig(t, ""), nil, doc, nil)
	assert.NoError(t, err)
	_, err = d.GetStatuses(appCtx, []string{"1", "2"})
	assert.EqualError(t, err, "connection refused")
	doc.AssertNotCalled(t, "GetInstanceDetails", "2")
}

func TestGetHolding(t *testing.T) {
	d := newDriver(t)
	p := &Patron{Id: "p1"}
	list, err := d.GetHolding(appCtx, "1458569", p)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, Holding{
		ItemStatus: ItemStatus{Id: "1458569", Availability: true, Status: "AVAILABLE", Location: "UC/MAIN/", CallNumber: "QA76.73.G63 D66 2015"},
		Barcode:    "33165972443029224",
		ItemId:     "wio-1458569-1",
		IsHoldable: true,
		HoldType:   "hold",
		AddLink:    true,
	}, list[0])
	assert.False(t, list[1].IsHoldable)
	assert.False(t, list[1].AddLink)
	assert.Equal(t, "2025-03-28 10:00:00", list[1].DueDate)
	assert.Equal(t, "hold", list[1].HoldType)

	list, err = d.GetHolding(appCtx, "1458569", nil)
	assert.NoError(t, err)
	assert.False(t, list[0].IsHoldable)
	assert.False(t, list[0].AddLink)
}

func TestGetRecordError(t *testing.T) {
	doc := new(MockDocstoreClient)
	doc.On("GetInstanceDetails", "1").Return(nil, &oleclient.OleError{Service: "instanceDetails", Message: "invalid response"})
	d, err := New(sqliteConfig(t, ""), nil, doc, nil)
	assert.NoError(t, err)
	_, err = d.GetHolding(appCtx, "1", nil)
	var ilsErr *IlsError
	assert.True(t, errors.As(err, &ilsErr))
	assert.Equal(t, "getRecord", ilsErr.Op)
	assert.EqualError(t, err, "OLE instanceDetails failed: invalid response")
}

func TestPlaceHold(t *testing.T) {
	d := newDriver(t)
	res, err := d.PlaceHold(appCtx, HoldDetails{Patron: Patron{Id: "p1"}, Id: "1458569", Barcode: "33165972443029224"})
	assert.NoError(t, err)
	assert.Equal(t, &HoldResult{Success: true, SysMessage: "Request raised successfully"}, res)

	res, err = d.PlaceHold(appCtx, HoldDetails{Patron: Patron{Id: "p1"}, Id: "1458569", Barcode: "f1"})
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Item is not available for request: f1", res.SysMessage)
}

func TestPlaceHoldMockedResponses(t *testing.T) {
	circ := new(MockCirculationClient)
	circ.On("PlaceRequest", "p1", "b1", ole.RequestTypePageHold).Return(&oleclient.Response{Message: ""}, nil)
	circ.On("PlaceRequest", "p1", "b2", ole.RequestTypePageHold).
		Return(&oleclient.Response{Raw: "OK"}, &oleclient.OleError{Service: "placeRequest", Message: "invalid response", Err: ole.ErrNoXml})
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)

	res, err := d.PlaceHold(appCtx, HoldDetails{Patron: Patron{Id: "p1"}, Barcode: "b1"})
	assert.NoError(t, err)
	assert.Equal(t, &HoldResult{Success: false, SysMessage: ""}, res)

	_, err = d.PlaceHold(appCtx, HoldDetails{Patron: Patron{Id: "p1"}, Barcode: "b2"})
	assert.ErrorIs(t, err, ole.ErrNoXml)
	circ.AssertExpectations(t)
}

func TestPickUpLocations(t *testing.T) {
	d := newDriver(t)
	assert.Equal(t, []PickUpLocation{{LocationID: "1", LocationDisplay: "Location 1"}}, d.GetPickUpLocations(nil))
	assert.Equal(t, "1", d.GetDefaultPickUpLocation(nil))

	cfg := sqliteConfig(t, "[[Holds.pickUpLocations]]\nlocationID = \"MAIN\"\nlocationDisplay = \"Main Library\"\n")
	d2, err := New(cfg, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, []PickUpLocation{{LocationID: "MAIN", LocationDisplay: "Main Library"}}, d2.GetPickUpLocations(&Patron{Id: "p1"}))
}

func TestGetRenewDetails(t *testing.T) {
	d := newDriver(t)
	assert.Equal(t, "33165972443029224,1458569", d.GetRenewDetails(Transaction{Id: "1458569", ItemId: "33165972443029224"}))
}

func TestRenewMyItems(t *testing.T) {
	d := newDriver(t)
	res, err := d.RenewMyItems(appCtx, RenewDetails{
		Patron:  Patron{Id: "p1"},
		Details: []string{"33165972443029224,1458569", "f9,1458570", "123"},
	})
	assert.NoError(t, err)
	assert.Len(t, res.Details, 3)
	assert.Equal(t, RenewItemResult{Success: true, ItemId: "33165972443029224", SysMessage: "Item renewed successfully"}, res.Details["33165972443029224"])
	assert.False(t, res.Details["f9"].Success)
	assert.Nil(t, res.Details["f9"].NewDate)
	assert.Contains(t, res.Details["f9"].SysMessage, "renewed the maximum")
	assert.True(t, res.Details["123"].Success)
}

func TestRenewMyItemsRawResponse(t *testing.T) {
	circ := new(MockCirculationClient)
	circ.On("RenewItem", "p1", "b1").
		Return(&oleclient.Response{Raw: "OK"}, &oleclient.OleError{Service: "renewItem", Message: "invalid response", Err: ole.ErrNoXml})
	circ.On("RenewItem", "p1", "b2").Return(nil, errors.New("connection reset"))
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)

	res, err := d.RenewMyItems(appCtx, RenewDetails{Patron: Patron{Id: "p1"}, Details: []string{"b1,1"}})
	assert.NoError(t, err)
	assert.Equal(t, RenewItemResult{Success: false, ItemId: "b1", SysMessage: "OK"}, res.Details["b1"])

	_, err = d.RenewMyItems(appCtx, RenewDetails{Patron: Patron{Id: "p1"}, Details: []string{"b1,1", "b2,2"}})
	assert.EqualError(t, err, "connection reset")
	var ilsErr *IlsError
	assert.True(t, errors.As(err, &ilsErr))
	assert.Equal(t, "renewMyItems", ilsErr.Op)
}

func TestRenewMyItemsRejectedItem(t *testing.T) {
	var calls []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		barcode := r.URL.Query().Get("itemBarcode")
		calls = append(calls, barcode)
		if barcode == "b2" {
			http.Error(w, "<renewItem><message>Item is on hold</message></renewItem>", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("<renewItem><message>Item renewed successfully</message></renewItem>"))
	})
	server := httptest.NewServer(handler)
	defer server.Close()
	circ := oleclient.NewCirculationClient(http.DefaultClient, server.URL, "", 0)
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)

	res, err := d.RenewMyItems(appCtx, RenewDetails{Patron: Patron{Id: "p1"}, Details: []string{"b1,1", "b2,2", "b3,3"}})
	assert.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2", "b3"}, calls)
	assert.Len(t, res.Details, 3)
	assert.True(t, res.Details["b1"].Success)
	assert.Equal(t, RenewItemResult{Success: false, ItemId: "b2", SysMessage: "<renewItem><message>Item is on hold</message></renewItem>\n"}, res.Details["b2"])
	assert.True(t, res.Details["b3"].Success)
}

func TestGetPurchaseHistory(t *testing.T) {
	d := newDriver(t)
	assert.Len(t, d.GetPurchaseHistory("1"), 0)
	assert.NotNil(t, d.GetPurchaseHistory("1"))
}

func TestCircErrorsWrapped(t *testing.T) {
	circ := new(MockCirculationClient)
	boom := errors.New("boom")
	circ.On("GetCheckedOutItems", "p1").Return(nil, boom)
	circ.On("GetFines", "p1").Return(nil, boom)
	circ.On("GetHolds", "p1").Return(nil, boom)
	d, err := New(sqliteConfig(t, ""), circ, nil, nil)
	assert.NoError(t, err)
	_, err = d.GetMyTransactions(appCtx, Patron{Id: "p1"})
	assert.ErrorIs(t, err, boom)
	_, err = d.GetMyFines(appCtx, Patron{Id: "p1"})
	assert.ErrorIs(t, err, boom)
	_, err = d.GetMyHolds(appCtx, Patron{Id: "p1"})
	assert.ErrorIs(t, err, boom)
	var ilsErr *IlsError
	assert.True(t, errors.As(err, &ilsErr))
	assert.Equal(t, "getMyHolds", ilsErr.Op)
}

func TestPatronStoreError(t *testing.T) {
	store := new(MockPatronStore)
	store.On("Login", "b", "l").Return(nil, errors.New("db down"))
	d, err := New(sqliteConfig(t, ""), nil, nil, store)
	assert.NoError(t, err)
	_, err = d.PatronLogin(appCtx, "b", "l")
	assert.EqualError(t, err, "db down")
}

type MockCirculationClient struct {
	mock.Mock
}

func nodeArg(args mock.Arguments) *ole.Node {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*ole.Node)
}

func responseArg(args mock.Arguments) *oleclient.Response {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*oleclient.Response)
}

func (m *MockCirculationClient) LookupUser(ctx context.Context, patronId string) (*ole.Node, error) {
	args := m.Called(patronId)
	return nodeArg(args), args.Error(1)
}

func (m *MockCirculationClient) GetCheckedOutItems(ctx context.Context, patronId string) (*ole.Node, error) {
	args := m.Called(patronId)
	return nodeArg(args), args.Error(1)
}

func (m *MockCirculationClient) GetFines(ctx context.Context, patronId string) (*ole.Node, error) {
	args := m.Called(patronId)
	return nodeArg(args), args.Error(1)
}

func (m *MockCirculationClient) GetHolds(ctx context.Context, patronId string) (*ole.Node, error) {
	args := m.Called(patronId)
	return nodeArg(args), args.Error(1)
}

func (m *MockCirculationClient) PlaceRequest(ctx context.Context, patronId string, itemBarcode string, requestType string) (*oleclient.Response, error) {
	args := m.Called(patronId, itemBarcode, requestType)
	return responseArg(args), args.Error(1)
}

func (m *MockCirculationClient) RenewItem(ctx context.Context, patronId string, itemBarcode string) (*oleclient.Response, error) {
	args := m.Called(patronId, itemBarcode)
	return responseArg(args), args.Error(1)
}

type MockDocstoreClient struct {
	mock.Mock
}

func (m *MockDocstoreClient) GetInstanceDetails(ctx context.Context, bibId string) (*ole.Node, error) {
	args := m.Called(bibId)
	return nodeArg(args), args.Error(1)
}

type MockPatronStore struct {
	mock.Mock
}

func (m *MockPatronStore) Login(ctx context.Context, barcode string, login string) (*patron.Row, error) {
	args := m.Called(barcode, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*patron.Row), args.Error(1)
}

func (m *MockPatronStore) Close() error {
	return nil
}
