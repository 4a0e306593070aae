package olemock

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/indexdata/go-utils/utils"
	"github.com/indexdata/olebridge/httpclient"
	"github.com/indexdata/olebridge/ole"
)

const (
	CirculationPath = "/olefs/circulation"
	DocstorePath    = "/oledocstore/document"
)

// Identifiers starting with this prefix are unknown to the mock.
const failPrefix = "f"

var log *slog.Logger = slogEnable(utils.Must(utils.GetEnvBool("ENABLE_JSON_LOG", false)))

func slogEnable(enable bool) *slog.Logger {
	if enable {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.Default()
}

// OleMock simulates the OLE circulation and docstore services.
type OleMock struct {
	Now    func() time.Time
	server *http.Server
}

func (m *OleMock) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func writeXml(w http.ResponseWriter, status int, v any, junk bool) {
	buf, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(httpclient.ContentType, httpclient.ContentTypeApplicationXml)
	w.WriteHeader(status)
	if junk {
		// the real service surrounds write responses with chunk-size noise
		buf = []byte(fmt.Sprintf("%x\r\n%s\r\n0", len(buf), buf))
	}
	_, err = w.Write(buf)
	if err != nil {
		log.Warn("writeResponse", "error", err.Error())
	}
}

func (m *OleMock) CirculationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		service := query.Get("service")
		patronId := query.Get("patronId")
		log.Info("circulation", "method", r.Method, "service", service, "patronId", patronId)
		if patronId == "" || query.Get("operatorId") == "" {
			http.Error(w, "patronId and operatorId are required", http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(patronId, failPrefix) {
			http.Error(w, "Unknown patron: "+patronId, http.StatusInternalServerError)
			return
		}
		write := service == ole.ServicePlaceRequest || service == ole.ServiceRenewItem
		if write && r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		if !write && r.Method != http.MethodGet {
			http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		switch service {
		case ole.ServiceLookupUser:
			writeXml(w, http.StatusOK, lookupUser(patronId), false)
		case ole.ServiceGetCheckedOutItems:
			writeXml(w, http.StatusOK, checkedOutItems(m.now()), false)
		case ole.ServiceFine:
			writeXml(w, http.StatusOK, fines(), false)
		case ole.ServiceHolds:
			writeXml(w, http.StatusOK, holds(m.now()), false)
		case ole.ServicePlaceRequest:
			writeXml(w, http.StatusCreated, placeRequest(query.Get("itemBarcode"), query.Get("requestType")), true)
		case ole.ServiceRenewItem:
			writeXml(w, http.StatusOK, renewItem(query.Get("itemBarcode")), true)
		default:
			http.Error(w, "unsupported service: "+service, http.StatusBadRequest)
		}
	}
}

func (m *OleMock) DocstoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		if query.Get("docAction") != ole.DocActionInstanceDetails {
			http.Error(w, "unsupported docAction: "+query.Get("docAction"), http.StatusBadRequest)
			return
		}
		bibId := query.Get("bibIds")
		log.Info("docstore", "bibIds", bibId)
		writeXml(w, http.StatusOK, instanceDetails(bibId, m.now()), false)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte("OK\r\n"))
	}
}

func (m *OleMock) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(CirculationPath, m.CirculationHandler())
	mux.HandleFunc(DocstorePath, m.DocstoreHandler())
	mux.HandleFunc("/healthz", healthHandler())
	return mux
}

func (m *OleMock) Run(addr string) error {
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	log.Info("Start HTTP serve on " + addr)
	m.server = &http.Server{Addr: addr, Handler: m.Mux(), ReadHeaderTimeout: 10 * time.Second}
	return m.server.ListenAndServe()
}

func (m *OleMock) Shutdown() error {
	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
