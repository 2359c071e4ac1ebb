package drconsulta

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/telemedicine-client/internal/cache"
	"github.com/wolfman30/telemedicine-client/internal/telemedicine"
	"github.com/wolfman30/telemedicine-client/internal/upstream"
)

var errorMessageFields = []string{"message", "mensagem", "error"}

// entry is one doctor with its slots in upstream order.
type entry struct {
	doctor telemedicine.Doctor
	slots  []telemedicine.AppointmentSlot
}

// catalog implements the read side shared by both API generations: login on
// the marketplace, the active-slots listing and the normalization on top of it.
type catalog struct {
	slug        string
	client      *upstream.Client
	session     *upstream.Session
	cache       cache.Policy
	unitID      int
	location    *time.Location
	cachePrefix string
	decode      func(raw []byte, location *time.Location) ([]entry, error)
}

func newCatalog(slug string, cfg Config, decode func([]byte, *time.Location) ([]entry, error)) (*catalog, error) {
	client, err := upstream.NewClient(upstream.Config{
		Provider:      slug,
		BaseURL:       cfg.marketplaceBaseURL(),
		MessageFields: errorMessageFields,
		HTTPClient:    cfg.HTTPClient,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("drconsulta: %w", err)
	}
	c := &catalog{
		slug:        slug,
		client:      client,
		cache:       cache.NewPolicy(cfg.Cache),
		unitID:      cfg.MarketplaceDefaultUnitID,
		location:    cfg.Location,
		cachePrefix: "scheduled.telemedicine.providers:" + slug + ":schedule",
		decode:      decode,
	}
	c.session = newLoginSession(slug, "marketplace", client, cfg)
	return c, nil
}

// newLoginSession authenticates with client credentials against client's v1/login/auth.
func newLoginSession(slug, name string, client *upstream.Client, cfg Config) *upstream.Session {
	auth := func(ctx context.Context) (*telemedicine.Token, error) {
		var resp loginResponse
		err := client.DoJSON(ctx, upstream.Request{
			Operation: "login_" + name,
			Method:    http.MethodPost,
			Path:      "v1/login/auth",
			Body:      loginRequest{ClientID: cfg.ClientID, Secret: cfg.Secret},
		}, &resp)
		if err != nil {
			return nil, err
		}
		return tokenFromLogin(resp, cfg.Now())
	}
	return upstream.NewSession(slug, name, auth,
		upstream.WithSessionClock(cfg.Now),
		upstream.WithSessionLogger(cfg.Logger),
		upstream.WithSessionMetrics(cfg.Metrics),
	)
}

func (c *catalog) authorized(ctx context.Context) (upstream.AuthFunc, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	return upstream.BearerAuth(token.AccessToken()), nil
}

func (c *catalog) entries(ctx context.Context, specialty string) ([]entry, error) {
	prefix := c.cachePrefix
	query := url.Values{"idUnidade": {strconv.Itoa(c.unitID)}}
	if specialty != "" {
		prefix += ":" + specialty
		query.Set("idProduto", specialty)
	}

	raw, err := c.cache.Fetch(ctx, prefix, nil, func(ctx context.Context) ([]byte, error) {
		auth, err := c.authorized(ctx)
		if err != nil {
			return nil, err
		}
		return c.client.Do(ctx, upstream.Request{
			Operation: "list_active_slots",
			Path:      "v1/profissional/slotsAtivos",
			Query:     query,
			Auth:      auth,
		})
	})
	if err != nil {
		return nil, err
	}
	return c.decode(raw, c.location)
}

func (c *catalog) GetDoctors(ctx context.Context, q telemedicine.DoctorQuery) (telemedicine.DoctorCollection, error) {
	entries, err := c.entries(ctx, q.Specialty)
	if err != nil {
		return telemedicine.DoctorCollection{}, err
	}
	name := strings.ToLower(strings.TrimSpace(q.Name))
	var doctors []telemedicine.Doctor
	for _, e := range entries {
		if name != "" && !strings.Contains(strings.ToLower(e.doctor.Name), name) {
			continue
		}
		doctors = append(doctors, e.doctor)
	}
	return telemedicine.NewCollection(doctors...), nil
}

// GetSlotsForDoctor keeps upstream slot order.
func (c *catalog) GetSlotsForDoctor(ctx context.Context, doctorID string, q telemedicine.SlotQuery) (telemedicine.SlotCollection, error) {
	entries, err := c.entries(ctx, q.Specialty)
	if err != nil {
		return telemedicine.SlotCollection{}, err
	}
	e, ok := findEntry(entries, doctorID)
	if !ok {
		return telemedicine.SlotCollection{}, nil
	}
	return telemedicine.FilterSlots(telemedicine.NewCollection(e.slots...), q.Until, q.Limit), nil
}

// GetDoctorsWithSlots keeps upstream doctor order.
func (c *catalog) GetDoctorsWithSlots(ctx context.Context, q telemedicine.SlotQuery) (telemedicine.DoctorCollection, error) {
	entries, err := c.entries(ctx, q.Specialty)
	if err != nil {
		return telemedicine.DoctorCollection{}, err
	}
	var doctors []telemedicine.Doctor
	for _, e := range entries {
		if q.DoctorID != "" && e.doctor.ID != q.DoctorID {
			continue
		}
		doctors = append(doctors, e.doctor.WithSlots(telemedicine.NewCollection(e.slots...)))
	}
	return telemedicine.KeepDoctorsWithSlots(telemedicine.NewCollection(doctors...), q.Until, q.Limit), nil
}

func (c *catalog) GetDoctorSlot(ctx context.Context, doctorID, slotID string) (telemedicine.AppointmentSlot, error) {
	entries, err := c.entries(ctx, "")
	if err != nil {
		return telemedicine.AppointmentSlot{}, err
	}
	e, ok := findEntry(entries, doctorID)
	if !ok || len(e.slots) == 0 {
		return telemedicine.AppointmentSlot{}, telemedicine.DoctorNotFound(doctorID)
	}
	for _, s := range e.slots {
		if s.ID == slotID {
			return s, nil
		}
	}
	return telemedicine.AppointmentSlot{}, telemedicine.SlotNotFound(doctorID, slotID)
}

func findEntry(entries []entry, doctorID string) (entry, bool) {
	for _, e := range entries {
		if e.doctor.ID == doctorID {
			return e, true
		}
	}
	return entry{}, false
}

func toEntry(p professional, slots []slot, location *time.Location) (entry, error) {
	doctor := telemedicine.Doctor{
		ID:                 p.ID.String(),
		Name:               p.Name,
		RegistrationNumber: p.RegistrationNumber,
		PhotoURL:           p.Photos.Small,
	}
	gender, err := telemedicine.ParseGender(p.Gender)
	if err != nil {
		return entry{}, err
	}
	doctor.Gender = gender
	if p.Rating != nil {
		rating, err := telemedicine.NewRating(float64(*p.Rating))
		if err != nil {
			return entry{}, err
		}
		doctor.Rating = &rating
	}

	out := make([]telemedicine.AppointmentSlot, 0, len(slots))
	for _, s := range slots {
		at, err := upstream.ParseTime(s.DateTime, location, location)
		if err != nil {
			return entry{}, telemedicine.NewValidationError("horario", "%v", err)
		}
		slot := telemedicine.AppointmentSlot{ID: s.ID.String(), DateTime: at}
		if s.Price != nil {
			price := telemedicine.MoneyFromFloat(float64(*s.Price))
			slot.Price = &price
		}
		out = append(out, slot)
	}
	return entry{doctor: doctor, slots: out}, nil
}

func decodeSchedule(raw []byte, location *time.Location) ([]entry, error) {
	var items []scheduleItem
	if err := upstream.Decode(Slug, raw, &items); err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		e, err := toEntry(item.Professional, item.Slots, location)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeLegacySchedule(raw []byte, location *time.Location) ([]entry, error) {
	var items []legacyScheduleItem
	if err := upstream.Decode(LegacySlug, raw, &items); err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		e, err := toEntry(item.professional, item.Slots, location)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
