package mock

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pps-player/tablewatch/internal/dashboard"
)

const sessionCookie = "PHPSESSID"

// loginPage is what the dashboard serves to requests without a valid
// session cookie.
const loginPage = `<html><body><form method="post" action="/dashboard/proc/proc_store_login.php">
<input name="store_id"><input type="password" name="store_pw"></form></body></html>`

// Table is one occupied table on the fake dashboard.
type Table struct {
	Name  string
	User  string
	Start time.Time
	End   time.Time
}

// Dashboard is an in-process stand-in for the remote store dashboard. It
// serves the zone probe, login and status endpoints with the same shapes as
// the real service.
type Dashboard struct {
	StoreID    string
	Password   string
	StoreIndex string
	ZoneIndex  string

	// Now is the dashboard's clock; defaults to time.Now.
	Now func() time.Time

	mu          sync.Mutex
	tables      []Table
	sessions    map[string]bool
	probeStatus int
	logins      int
	fetches     int
}

func NewDashboard(storeID, password string) *Dashboard {
	return &Dashboard{
		StoreID:    storeID,
		Password:   password,
		StoreIndex: "1",
		ZoneIndex:  "1",
		Now:        time.Now,
		sessions:   make(map[string]bool),
	}
}

// SetTables replaces the occupied tables.
func (d *Dashboard) SetTables(tables ...Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables = append([]Table(nil), tables...)
}

// Tables returns a copy of the occupied tables.
func (d *Dashboard) Tables() []Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Table(nil), d.tables...)
}

// ExpireSessions forgets every issued session cookie, as the real dashboard
// does when its PHP sessions time out.
func (d *Dashboard) ExpireSessions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = make(map[string]bool)
}

// SetProbeStatus makes the zone probe answer with status. Zero restores the
// normal response.
func (d *Dashboard) SetProbeStatus(status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.probeStatus = status
}

// Logins returns how many successful logins the dashboard has seen.
func (d *Dashboard) Logins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logins
}

// Fetches returns how many authenticated status fetches were served.
func (d *Dashboard) Fetches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fetches
}

func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case dashboard.ZoneOptionsPath:
		d.handleZoneOptions(w, r)
	case dashboard.LoginPath:
		d.handleLogin(w, r)
	case dashboard.StatusPath:
		d.handleStatus(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (d *Dashboard) handleZoneOptions(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	status := d.probeStatus
	d.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if r.URL.Query().Get("store_id") != d.StoreID {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<option value="%s">%s</option>`, html.EscapeString(d.ZoneIndex), "본점")
}

func (d *Dashboard) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("store_id") != d.StoreID || r.PostForm.Get("store_pw") != d.Password {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `<script>alert("아이디 또는 비밀번호가 올바르지 않습니다.");history.back();</script>`)
		return
	}

	token := newToken()
	d.mu.Lock()
	d.sessions[token] = true
	d.logins++
	d.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<script>location.replace("/dashboard/");</script>`)
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !d.authorized(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, loginPage)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	d.fetches++
	tables := append([]Table(nil), d.tables...)
	d.mu.Unlock()

	fragment := ""
	if r.PostForm.Get("store_idx") == d.StoreIndex && r.PostForm.Get("store_z_idx") == d.ZoneIndex {
		fragment = RenderFragment(tables)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"result":      "ok",
		"return_html": fragment,
	})
}

func (d *Dashboard) authorized(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[c.Value]
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RenderFragment renders tables as the dashboard's card markup.
func RenderFragment(tables []Table) string {
	var b strings.Builder
	b.WriteString(`<div class="use-state-list">`)
	for _, t := range tables {
		b.WriteString(`<div class="tr-fx-nw tr-fxstr tr-fx-c p-20-c">`)
		fmt.Fprintf(&b, `<div class="tit"><p class="bold">%s</p></div>`, html.EscapeString(t.Name))
		fmt.Fprintf(&b, `<div class="row"><span class="lb">이용자</span><span>%s</span></div>`, html.EscapeString(t.User))
		fmt.Fprintf(&b, `<div class="row"><span class="lb">시작</span><span>%s</span></div>`, t.Start.Format("01.02 15:04"))
		fmt.Fprintf(&b, `<div class="row"><span class="lb">종료</span><span>%s</span></div>`, t.End.Format("01.02 15:04"))
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}
