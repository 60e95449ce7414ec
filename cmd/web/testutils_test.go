package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/repository"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestApplication(t *testing.T) *application {
	t.Helper()

	return &application{
		errorLog:    log.New(io.Discard, "", 0),
		infoLog:     log.New(io.Discard, "", 0),
		env:         "test",
		frontendURL: "http://shop.test",
		publicURL:   "http://shop.test",
		session:     scs.New(),
		tokens:      auth.NewTokenIssuer("test-secret", time.Hour),
		validate:    newValidator(),
		users:       newFakeUsers(),
		products:    newFakeProducts(),
		orders:      newFakeOrders(),
		coupons:     newFakeCoupons(),
		reviews:     &fakeReviews{},
		payments:    &fakeProcessor{},
		mailer:      &fakeMailer{},
		now:         func() time.Time { return testNow },
	}
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &testServer{ts}
}

type testResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r testResponse) json(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.body, &m), string(r.body))
	return m
}

func (r testResponse) message(t *testing.T) string {
	t.Helper()
	msg, _ := r.json(t)["message"].(string)
	return msg
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) testResponse {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rs, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer rs.Body.Close()

	b, err := io.ReadAll(rs.Body)
	require.NoError(t, err)
	return testResponse{status: rs.StatusCode, header: rs.Header, body: b}
}

// addUser stores a user directly and returns it with a bearer token.
func addUser(t *testing.T, app *application, name string, role auth.Role) (*models.User, string) {
	t.Helper()
	u, err := app.users.Insert(context.Background(), name, strings.ToLower(name)+"@example.com", "password123", role)
	require.NoError(t, err)
	token, err := app.tokens.Issue(u.ID.Hex())
	require.NoError(t, err)
	return u, token
}

func addProduct(t *testing.T, app *application, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Description: name, Price: price, Category: "Test", Stock: stock}
	require.NoError(t, app.products.Insert(context.Background(), p))
	return p
}

// --- users ---

type fakeUsers struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]*models.User
	passwords map[primitive.ObjectID]string
	resets    map[string]primitive.ObjectID
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:     map[primitive.ObjectID]*models.User{},
		passwords: map[primitive.ObjectID]string{},
		resets:    map[string]primitive.ObjectID{},
	}
}

func (f *fakeUsers) byEmail(email string) *models.User {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) Insert(_ context.Context, name, email, password string, role auth.Role) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.byEmail(email) != nil {
		return nil, &models.DuplicateError{Field: "email"}
	}
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     strings.ToLower(email),
		Avatar:    repository.DefaultAvatar,
		Role:      role,
		CreatedAt: testNow,
	}
	f.users[u.ID] = u
	f.passwords[u.ID] = password
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.byEmail(email)
	if u == nil || f.passwords[u.ID] != password {
		return nil, repository.ErrInvalidCredentials
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) List(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.User{}
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id primitive.ObjectID, upd repository.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return models.ErrNoRecord
	}
	if upd.Email != "" {
		if other := f.byEmail(upd.Email); other != nil && other.ID != id {
			return &models.DuplicateError{Field: "email"}
		}
		u.Email = strings.ToLower(upd.Email)
	}
	if upd.Name != "" {
		u.Name = upd.Name
	}
	if upd.Role != "" {
		u.Role = upd.Role
	}
	return nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, id primitive.ObjectID, oldPassword, newPassword string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	if f.passwords[id] != oldPassword {
		return nil, repository.ErrWrongPassword
	}
	f.passwords[id] = newPassword
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) CreateResetToken(_ context.Context, email string, _ time.Time) (string, *models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.byEmail(email)
	if u == nil {
		return "", nil, models.ErrNoRecord
	}
	token := repository.NewResetToken()
	f.resets[token] = u.ID
	cp := *u
	return token, &cp, nil
}

func (f *fakeUsers) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for tok, uid := range f.resets {
		if uid == id {
			delete(f.resets, tok)
		}
	}
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, token, password string, _ time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.resets[token]
	if !ok {
		return nil, repository.ErrResetTokenInvalid
	}
	delete(f.resets, token)
	f.passwords[id] = password
	cp := *f.users[id]
	return &cp, nil
}

func (f *fakeUsers) ClearExpiredResetTokens(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := int64(len(f.resets))
	f.resets = map[string]primitive.ObjectID{}
	return n, nil
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return models.ErrNoRecord
	}
	delete(f.users, id)
	return nil
}

// --- products ---

type fakeProducts struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	// beforeSave runs against the stored product ahead of a SaveReviews.
	beforeSave func(stored *models.Product)
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{products: map[primitive.ObjectID]*models.Product{}}
}

func copyProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Reviews = append([]models.Review{}, p.Reviews...)
	cp.Images = append([]models.Image{}, p.Images...)
	return &cp
}

func (f *fakeProducts) Insert(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if len(p.Images) == 0 {
		p.Images = []models.Image{models.DefaultProductImage}
	}
	f.products[p.ID] = copyProduct(p)
	return nil
}

func (f *fakeProducts) Get(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return copyProduct(p), nil
}

func (f *fakeProducts) GetMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := map[primitive.ObjectID]*models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Update(_ context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Images != nil {
		p.Images = u.Images
	}
	return copyProduct(p), nil
}

func (f *fakeProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.products[id]; !ok {
		return models.ErrNoRecord
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProducts) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.products)), nil
}

// Search applies the keyword and category only; range filters are covered
// by the models package.
func (f *fakeProducts) Search(_ context.Context, flt models.ProductFilter) ([]*models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Product{}
	for _, p := range f.products {
		if flt.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(flt.Keyword)) {
			continue
		}
		if flt.Category != "" && p.Category != flt.Category {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, int64(len(out)), nil
}

func (f *fakeProducts) SaveReviews(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.products[p.ID]
	if !ok {
		return models.ErrNoRecord
	}
	if f.beforeSave != nil {
		f.beforeSave(stored)
	}
	if stored.ReviewsVersion != p.ReviewsVersion {
		return models.ErrEditConflict
	}
	stored.Reviews = append([]models.Review{}, p.Reviews...)
	stored.Ratings = p.Ratings
	stored.NumOfReviews = p.NumOfReviews
	stored.ReviewsVersion++
	p.ReviewsVersion++
	return nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return models.ErrNoRecord
	}
	p.Stock = max(0, p.Stock-qty)
	return nil
}

func (f *fakeProducts) stock(id primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

// --- orders ---

type fakeOrders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
	// beforeApply runs ahead of the compare-and-set, to simulate a racing update.
	beforeApply func(o *models.Order)
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[primitive.ObjectID]*models.Order{}}
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.OrderItems = append([]models.OrderItem{}, o.OrderItems...)
	return &cp
}

func (f *fakeOrders) Insert(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.OrderStatus == "" {
		o.OrderStatus = models.StatusProcessing
	}
	f.orders[o.ID] = copyOrder(o)
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, models.ErrNoRecord
	}
	return copyOrder(o), nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Order{}
	for _, o := range f.orders {
		if o.User == userID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrders) ListAll(_ context.Context) ([]*models.Order, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Order{}
	var total float64
	for _, o := range f.orders {
		out = append(out, copyOrder(o))
		total += o.TotalPrice
	}
	return out, total, nil
}

func (f *fakeOrders) ListUnpaidBefore(_ context.Context, cutoff time.Time) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Order{}
	for _, o := range f.orders {
		if o.CreatedAt.Before(cutoff) && o.PaymentInfo.Status != models.PaymentSucceeded {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrders) ApplyTransition(_ context.Context, id primitive.ObjectID, t models.Transition, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t.Noop {
		return nil
	}
	o, ok := f.orders[id]
	if !ok {
		return models.ErrStatusConflict
	}
	if f.beforeApply != nil {
		f.beforeApply(o)
	}
	if o.OrderStatus != t.From {
		return models.ErrStatusConflict
	}
	o.OrderStatus = t.To
	if t.StampDelivered {
		o.DeliveredAt = &now
	}
	return nil
}

func (f *fakeOrders) AttachPaymentSession(_ context.Context, id, userID primitive.ObjectID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok || o.User != userID {
		return models.ErrNoRecord
	}
	o.PaymentInfo.ID = sessionID
	return nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id primitive.ObjectID, paymentID string, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return models.ErrNoRecord
	}
	if o.PaymentInfo.Status == models.PaymentSucceeded {
		return nil
	}
	o.PaymentInfo = models.PaymentInfo{ID: paymentID, Status: models.PaymentSucceeded}
	o.PaidAt = &paidAt
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.orders[id]; !ok {
		return models.ErrNoRecord
	}
	delete(f.orders, id)
	return nil
}

// --- coupons, reviews ---

type fakeCoupons struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func newFakeCoupons() *fakeCoupons {
	return &fakeCoupons{coupons: map[string]*models.Coupon{}}
}

func (f *fakeCoupons) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.coupons[code]
	if !ok {
		return nil, models.ErrNoRecord
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) Insert(_ context.Context, c *models.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.coupons[c.Code]; ok {
		return &models.DuplicateError{Field: "code"}
	}
	c.ID = primitive.NewObjectID()
	cp := *c
	f.coupons[c.Code] = &cp
	return nil
}

func (f *fakeCoupons) ListActive(_ context.Context, now time.Time) ([]*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.Coupon{}
	for _, c := range f.coupons {
		if !c.Expired(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeReviews struct {
	mu      sync.Mutex
	records []*models.ReviewRecord
}

func (f *fakeReviews) Insert(_ context.Context, r *models.ReviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ID = primitive.NewObjectID()
	cp := *r
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeReviews) ListByProduct(_ context.Context, productID primitive.ObjectID) ([]*models.ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []*models.ReviewRecord{}
	for _, r := range f.records {
		if r.Product == productID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- payment processor, mailer ---

type fakeProcessor struct {
	mu       sync.Mutex
	requests []payments.CheckoutRequest
	err      error
	event    *payments.Event
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &payments.Session{ID: "cs_test_123", URL: "https://checkout.test/cs_test_123"}, nil
}

// ParseWebhook accepts only the signature "valid".
func (f *fakeProcessor) ParseWebhook(_ []byte, signature string) (*payments.Event, error) {
	if signature != "valid" {
		return nil, payments.ErrBadSignature
	}
	return f.event, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
