package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bucketlist/internal/access"
	"bucketlist/internal/audit"
	authhandler "bucketlist/internal/auth/handler"
	authservice "bucketlist/internal/auth/service"
	"bucketlist/internal/auth/store/revocation"
	userstore "bucketlist/internal/auth/store/user"
	listhandler "bucketlist/internal/bucketlist/handler"
	listservice "bucketlist/internal/bucketlist/service"
	liststore "bucketlist/internal/bucketlist/store/bucketlist"
	itemstore "bucketlist/internal/bucketlist/store/item"
	jwttoken "bucketlist/internal/jwt_token"
	"bucketlist/internal/platform/metrics"
	"bucketlist/pkg/testutil"
)

// newAppRouter assembles the full application on in-memory stores, the way
// the server does without DATABASE_URL.
func newAppRouter(t *testing.T) (http.Handler, *audit.MemorySink) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	sink := audit.NewMemorySink()
	publisher := audit.NewPublisher(sink, logger)
	t.Cleanup(func() { _ = publisher.Close(context.Background()) })

	lists := liststore.New()
	trl := revocation.NewInMemoryTRL(nil)
	tokens := jwttoken.NewJWTService("scenario-key")
	m := metrics.New(prometheus.NewRegistry())

	bucketlists := listservice.New(lists, itemstore.New(),
		listservice.WithLogger(logger),
		listservice.WithAuditPublisher(publisher),
	)
	auth := authservice.New(userstore.New(), tokens,
		authservice.WithLogger(logger),
		authservice.WithAuditPublisher(publisher),
		authservice.WithMetrics(m),
		authservice.WithRevocationList(trl),
		authservice.WithOwnedResources(bucketlists),
		authservice.WithBcryptCost(bcrypt.MinCost),
	)
	gate := access.New(tokens, lists,
		access.WithRevocationChecker(trl),
		access.WithSubjectLookup(auth),
		access.WithLogger(logger),
	)

	return NewRouter(logger, m, nil,
		authhandler.New(auth, gate, logger),
		listhandler.New(bucketlists, gate, logger, "http://localhost:8080"),
	), sink
}

func jsonRequest(t *testing.T, method, path, token string, body any) *http.Request {
	req := testutil.NewJSONRequest(t, method, path, body)
	if token != "" {
		testutil.WithBearer(req, token)
	}
	return req
}

func TestBucketlistLifecycleScenario(t *testing.T) {
	testutil.Given(t, "a freshly started service", func(t *testing.T) {
		router, _ := newAppRouter(t)
		var token string
		var bucketlistID int64

		testutil.When(t, "a user registers and logs in", func(t *testing.T) {
			rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
				"username": "tester", "email": "test@example.com", "password": "Password12",
			}))
			testutil.AssertStatus(t, rr, http.StatusCreated)

			rr = testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
				"username": "tester", "password": "Password12",
			}))
			testutil.AssertStatus(t, rr, http.StatusOK)
			login := testutil.UnmarshalResponse[map[string]any](t, rr)
			token, _ = (*login)["auth_token"].(string)

			testutil.Then(t, "a token valid for twenty minutes is issued", func(t *testing.T) {
				require.NotEmpty(t, token)
				assert.EqualValues(t, 1200, (*login)["expires_in"])
			})
		})

		testutil.When(t, "the user creates a bucketlist", func(t *testing.T) {
			rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists/", token, map[string]string{"name": "bucket 1"}))
			testutil.AssertStatus(t, rr, http.StatusCreated)
			created := testutil.UnmarshalResponse[map[string]any](t, rr)
			id, _ := (*created)["id"].(float64)
			bucketlistID = int64(id)

			testutil.Then(t, "it can be fetched with an empty item list", func(t *testing.T) {
				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, fmt.Sprintf("/bucketlists/%d", bucketlistID), token))
				testutil.AssertStatus(t, rr, http.StatusOK)
				got := testutil.UnmarshalResponse[map[string]any](t, rr)
				assert.Equal(t, "bucket 1", (*got)["name"])
				assert.Empty(t, (*got)["items"])
			})
		})

		testutil.When(t, "the user deletes the bucketlist", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, fmt.Sprintf("/bucketlists/%d", bucketlistID), token))
			testutil.AssertStatus(t, rr, http.StatusOK)

			testutil.Then(t, "fetching it again is not found", func(t *testing.T) {
				rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, fmt.Sprintf("/bucketlists/%d", bucketlistID), token))
				testutil.AssertErrorMessage(t, rr, http.StatusNotFound, "not_found", "Bucketlist not found")
			})
		})

		testutil.When(t, "the same username registers again", func(t *testing.T) {
			rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
				"username": "tester", "email": "second@example.com", "password": "Password12",
			}))

			testutil.Then(t, "it is rejected as a conflict", func(t *testing.T) {
				testutil.AssertErrorMessage(t, rr, http.StatusConflict, "conflict", "user already exists")
			})
		})
	})
}

func TestLegacyTokenHeaderScenario(t *testing.T) {
	testutil.Given(t, "a logged in user", func(t *testing.T) {
		router, _ := newAppRouter(t)
		testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": "legacy", "email": "legacy@example.com", "password": "Password12",
		}))
		rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "legacy", "password": "Password12",
		}))
		login := testutil.UnmarshalResponse[map[string]any](t, rr)
		token, _ := (*login)["auth_token"].(string)

		testutil.When(t, "the token is sent in the Token header", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bucketlists", nil)
			req.Header.Set("Token", token)
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the request is authorized", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				page := testutil.UnmarshalResponse[map[string]any](t, rr)
				assert.Equal(t, "No bucketlist found", (*page)["message"])
			})
		})

		testutil.When(t, "a corrupted token is sent", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/bucketlists", token+"x"))

			testutil.Then(t, "it is rejected as invalid", func(t *testing.T) {
				testutil.AssertErrorMessage(t, rr, http.StatusUnauthorized, "unauthorized", access.MsgTokenInvalid)
			})
		})
	})
}

func TestUserDeletionScenario(t *testing.T) {
	testutil.Given(t, "a user with bucketlists and items", func(t *testing.T) {
		router, sink := newAppRouter(t)
		testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": "leaver", "email": "leaver@example.com", "password": "Password12",
		}))
		rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "leaver", "password": "Password12",
		}))
		login := testutil.UnmarshalResponse[map[string]any](t, rr)
		token, _ := (*login)["auth_token"].(string)

		rr = testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists", token, map[string]string{"name": "Mountains"}))
		created := testutil.UnmarshalResponse[map[string]any](t, rr)
		listID, _ := (*created)["id"].(float64)
		rr = testutil.DoRequest(router, jsonRequest(t, http.MethodPost, fmt.Sprintf("/bucketlists/%d/items", int64(listID)), token, map[string]string{"name": "Kilimanjaro"}))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		testutil.When(t, "the user deletes their account", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/users/me", token))
			testutil.AssertStatus(t, rr, http.StatusOK)

			testutil.Then(t, "a new account cannot see the old bucketlist and its name is free", func(t *testing.T) {
				testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
					"username": "newcomer", "email": "new@example.com", "password": "Password12",
				}))
				rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
					"username": "newcomer", "password": "Password12",
				}))
				login := testutil.UnmarshalResponse[map[string]any](t, rr)
				other, _ := (*login)["auth_token"].(string)

				rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, fmt.Sprintf("/bucketlists/%d", int64(listID)), other))
				testutil.AssertStatus(t, rr, http.StatusNotFound)

				rr = testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists", other, map[string]string{"name": "Mountains"}))
				testutil.AssertStatus(t, rr, http.StatusCreated)
			})

			testutil.And(t, "the deletion is audited", func(t *testing.T) {
				assert.Eventually(t, func() bool {
					return slices.Contains(sink.Actions(), audit.EventUserDeleted)
				}, time.Second, 10*time.Millisecond)
			})
		})
	})
}

func TestDeletedAccountTokensScenario(t *testing.T) {
	testutil.Given(t, "a user logged in from two devices", func(t *testing.T) {
		router, _ := newAppRouter(t)
		testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": "leaver", "email": "leaver@example.com", "password": "Password12",
		}))
		login := func() string {
			rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
				"username": "leaver", "password": "Password12",
			}))
			testutil.AssertStatus(t, rr, http.StatusOK)
			body := testutil.UnmarshalResponse[map[string]any](t, rr)
			token, _ := (*body)["auth_token"].(string)
			return token
		}
		laptop, phone := login(), login()

		testutil.When(t, "the account is deleted from the laptop", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/users/me", laptop))
			testutil.AssertStatus(t, rr, http.StatusOK)

			testutil.Then(t, "the laptop token is revoked", func(t *testing.T) {
				rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists", laptop, map[string]string{"name": "orphan"}))
				testutil.AssertErrorMessage(t, rr, http.StatusUnauthorized, "unauthorized", access.MsgTokenRevoked)
			})

			testutil.And(t, "the phone token no longer has a user behind it", func(t *testing.T) {
				rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists", phone, map[string]string{"name": "orphan"}))
				testutil.AssertErrorMessage(t, rr, http.StatusUnauthorized, "unauthorized", access.MsgUnknownUser)

				rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/bucketlists", phone))
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			})

			testutil.And(t, "no bucketlist named orphan was created", func(t *testing.T) {
				testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/register", "", map[string]string{
					"username": "newcomer", "email": "new@example.com", "password": "Password12",
				}))
				rr := testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/auth/login", "", map[string]string{
					"username": "newcomer", "password": "Password12",
				}))
				body := testutil.UnmarshalResponse[map[string]any](t, rr)
				other, _ := (*body)["auth_token"].(string)

				rr = testutil.DoRequest(router, jsonRequest(t, http.MethodPost, "/bucketlists", other, map[string]string{"name": "orphan"}))
				testutil.AssertStatus(t, rr, http.StatusCreated)
			})
		})
	})
}
