package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/ctxutil"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/randomization/listgen"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/services"
)

type fakeService struct {
	saved     *domain.Scheme
	patch     domain.SchemePatch
	claim     domain.ClaimInput
	actorID   int
	configID  uint
	claimErr  error
	updateErr error
}

func (f *fakeService) SaveConfig(_ context.Context, s *domain.Scheme, actorID int) (*domain.Scheme, error) {
	f.saved, f.actorID = s, actorID
	out := *s
	out.ID = 5
	out.Status = domain.StatusDraft
	return &out, nil
}

func (f *fakeService) UpdateConfig(_ context.Context, configID uint, p domain.SchemePatch, actorID int) (*domain.Scheme, error) {
	f.configID, f.patch, f.actorID = configID, p, actorID
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Scheme{ID: configID, Name: *p.Name}, nil
}

// No scheme yet is a null config, not an error.
func (f *fakeService) GetConfig(_ context.Context, studyID int) (*services.ConfigView, error) {
	return nil, nil
}

func (f *fakeService) GetConfigByID(_ context.Context, configID uint) (*services.ConfigView, error) {
	f.configID = configID
	return &services.ConfigView{Scheme: &domain.Scheme{ID: configID, Status: domain.StatusActive}, IsActive: true, IsLocked: true}, nil
}

func (f *fakeService) GenerateList(_ context.Context, configID uint, actorID int) (*services.GenerateListResult, error) {
	f.configID, f.actorID = configID, actorID
	return &services.GenerateListResult{ConfigID: configID, TotalEntries: 20, Strata: 1}, nil
}

func (f *fakeService) ActivateConfig(_ context.Context, configID uint, actorID int) (*domain.Scheme, error) {
	f.configID, f.actorID = configID, actorID
	return nil, domain.NoListError("activateConfig", configID)
}

func (f *fakeService) TestConfig(_ context.Context, s *domain.Scheme) (*listgen.Preview, error) {
	f.saved = s
	return &listgen.Preview{TotalEntries: 4}, nil
}

func (f *fakeService) GetListStats(_ context.Context, configID uint) (*services.ListStats, error) {
	f.configID = configID
	return &services.ListStats{ConfigID: configID, Total: 20, Used: 3, Available: 17}, nil
}

func (f *fakeService) RandomizeSubject(_ context.Context, in domain.ClaimInput) (*services.RandomizeResult, error) {
	f.claim = in
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &services.RandomizeResult{
		ConfigID:            1,
		StudySubjectID:      in.StudySubjectID,
		RandomizationNumber: "RND-00000100100001",
		ArmID:               "A",
		Label:               "[Blinded]",
		IsBlinded:           true,
		BlindingLevel:       domain.DoubleBlind,
		SequenceNumber:      1,
		StratumKey:          domain.DefaultStratumKey,
		AssignedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func newTestRouter(svc services.RandomizationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRandomizationHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: 77}))
		c.Next()
	})
	r.POST("/configs", h.SaveConfig)
	r.POST("/configs/test", h.TestConfig)
	r.PATCH("/configs/:configId", h.UpdateConfig)
	r.GET("/configs/:configId", h.GetConfigByID)
	r.POST("/configs/:configId/generate", h.GenerateList)
	r.POST("/configs/:configId/activate", h.ActivateConfig)
	r.GET("/configs/:configId/stats", h.GetListStats)
	r.GET("/studies/:studyId/config", h.GetConfig)
	r.POST("/studies/:studyId/subjects/:studySubjectId/randomize", h.RandomizeSubject)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: want %d got %d body=%s", want, rec.Code, rec.Body.String())
	}
}

func expectBodyContains(t *testing.T, rec *httptest.ResponseRecorder, substr string) {
	t.Helper()
	if !strings.Contains(rec.Body.String(), substr) {
		t.Fatalf("body %s does not contain %s", rec.Body.String(), substr)
	}
}

func expectJSON(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode body %s: %v", rec.Body.String(), err)
	}
	if !reflect.DeepEqual(w, g) {
		t.Fatalf("json mismatch: want %s got %s", want, rec.Body.String())
	}
}

func TestSaveConfigBindsClientFields(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodPost, "/configs", `{
		"studyId": 3,
		"name": "  Trial A ",
		"blockSize": 4,
		"allocationRatios": [{"armId":"A","weight":1},{"armId":"B","weight":1}],
		"stratificationFactors": [{"name":"sex","values":["M","F"]}],
		"status": "active",
		"configId": 99
	}`)
	expectStatus(t, rec, http.StatusCreated)

	if svc.saved == nil {
		t.Fatalf("service was not called")
	}
	if svc.actorID != 77 {
		t.Fatalf("actor: want 77 got %d", svc.actorID)
	}
	if svc.saved.StudyID != 3 || svc.saved.Name != "Trial A" {
		t.Fatalf("bound scheme: study=%d name=%q", svc.saved.StudyID, svc.saved.Name)
	}
	if len(svc.saved.Arms) != 2 || len(svc.saved.Factors) != 1 || svc.saved.Factors[0].Name != "sex" {
		t.Fatalf("bound arms/factors: %+v %+v", svc.saved.Arms, svc.saved.Factors)
	}
	if svc.saved.ID != 0 || svc.saved.Status != "" {
		t.Fatalf("server-owned fields must not bind: id=%d status=%q", svc.saved.ID, svc.saved.Status)
	}

	var body struct {
		Config domain.Scheme `json:"config"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Config.ID != 5 || body.Config.Status != domain.StatusDraft {
		t.Fatalf("response config: id=%d status=%s", body.Config.ID, body.Config.Status)
	}
}

func TestSaveConfigRejectsMalformedJSON(t *testing.T) {
	r := newTestRouter(&fakeService{})
	rec := do(r, http.MethodPost, "/configs", `{"studyId":`)
	expectStatus(t, rec, http.StatusBadRequest)
	expectBodyContains(t, rec, `"code":"invalid_request"`)
}

func TestUpdateConfigPassesPatch(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodPatch, "/configs/12", `{"name":"Renamed","blockSize":6}`)
	expectStatus(t, rec, http.StatusOK)
	if svc.configID != 12 {
		t.Fatalf("config id: want 12 got %d", svc.configID)
	}
	if svc.patch.BlockSize == nil || *svc.patch.BlockSize != 6 {
		t.Fatalf("blockSize patch: %v", svc.patch.BlockSize)
	}
	if svc.patch.TotalSlots != nil {
		t.Fatalf("absent fields must stay nil")
	}

	svc.updateErr = domain.LockedError("updateConfig", 12)
	rec = do(r, http.MethodPatch, "/configs/12", `{"name":"Again"}`)
	expectStatus(t, rec, http.StatusConflict)
	expectBodyContains(t, rec, `"code":"locked"`)
}

func TestConfigIDParamValidation(t *testing.T) {
	r := newTestRouter(&fakeService{})
	for _, path := range []string{"/configs/abc", "/configs/0", "/configs/-1/stats"} {
		rec := do(r, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"code":"invalid_config_id"`) {
			t.Fatalf("%s: got %d %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestReadEndpoints(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodGet, "/configs/8", "")
	expectStatus(t, rec, http.StatusOK)
	expectBodyContains(t, rec, `"isLocked":true`)
	expectBodyContains(t, rec, `"configId":8`)

	rec = do(r, http.MethodGet, "/configs/8/stats", "")
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"stats":{"configId":8,"total":20,"used":3,"available":17,"byGroup":null,"byStratum":null}}`)

	rec = do(r, http.MethodGet, "/studies/4/config", "")
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"config":null}`)
}

func TestGenerateAndActivate(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodPost, "/configs/3/generate", "")
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"configId":3,"totalEntries":20,"strata":1}`)
	if svc.actorID != 77 {
		t.Fatalf("actor: want 77 got %d", svc.actorID)
	}

	rec = do(r, http.MethodPost, "/configs/3/activate", "")
	expectStatus(t, rec, http.StatusConflict)
	expectBodyContains(t, rec, `"code":"no_list"`)
}

func TestTestConfigRouteIsNotAConfigID(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodPost, "/configs/test", `{"allocationRatios":[{"armId":"A","weight":1},{"armId":"B","weight":1}],"totalSlots":4}`)
	expectStatus(t, rec, http.StatusOK)
	expectBodyContains(t, rec, `"totalEntries":4`)
	if svc.saved == nil || svc.saved.TotalSlots != 4 {
		t.Fatalf("preview scheme not bound: %+v", svc.saved)
	}
}

func TestRandomizeSubject(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	rec := do(r, http.MethodPost, "/studies/2/subjects/31/randomize", `{"stratumValues":{"sex":"F"}}`)
	expectStatus(t, rec, http.StatusOK)
	want := domain.ClaimInput{StudyID: 2, StudySubjectID: 31, ActorID: 77, StratumValues: map[string]string{"sex": "F"}}
	if !reflect.DeepEqual(svc.claim, want) {
		t.Fatalf("claim input: want %+v got %+v", want, svc.claim)
	}
	expectBodyContains(t, rec, `"label":"[Blinded]"`)

	rec = do(r, http.MethodPost, "/studies/2/subjects/32/randomize", "")
	expectStatus(t, rec, http.StatusOK)
	if svc.claim.StratumValues != nil {
		t.Fatalf("empty body must leave stratum values nil: %v", svc.claim.StratumValues)
	}

	svc.claimErr = domain.ExhaustedError("randomizeSubject", domain.DefaultStratumKey)
	rec = do(r, http.MethodPost, "/studies/2/subjects/33/randomize", "")
	expectStatus(t, rec, http.StatusConflict)
	expectBodyContains(t, rec, "No available randomization slots")

	rec = do(r, http.MethodPost, "/studies/x/subjects/33/randomize", "")
	expectStatus(t, rec, http.StatusBadRequest)
	expectBodyContains(t, rec, `"code":"invalid_studyId"`)
}
