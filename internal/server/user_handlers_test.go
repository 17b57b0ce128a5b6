package server_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/appleboy/gofight/v2"
	"github.com/mdouchement/passgate/internal/model"
	"github.com/mdouchement/passgate/internal/server"
	"github.com/mdouchement/passgate/pkg/password"
	"github.com/mdouchement/passgate/pkg/resettoken"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = `{"error":{"tag":"invalid-auth","message":"Invalid username or password."}}`

func TestRequestSignup(t *testing.T) {
	engine, f := setup(t)

	gofight.New().POST("/signup").
		SetJSON(gofight.D{
			"fullname":              "George Abitbol",
			"email":                 "george@nowhere.lan",
			"username":              "george",
			"password":              "la-classe-americaine",
			"password_confirmation": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code, r.Body.String())

			v := fastjson.MustParse(r.Body.String())
			assert.NotEmpty(t, v.GetStringBytes("token"))
			assert.Equal(t, "george", string(v.GetStringBytes("user", "username")))
			assert.Equal(t, "George Abitbol", string(v.GetStringBytes("user", "fullname")))
			assert.Nil(t, v.Get("user", "password"))
		})

	user, err := f.ctrl.Database.FindUserByUsername(context.Background(), "george")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.Password, "$argon2id$"))

	gofight.New().POST("/signup").
		SetJSON(gofight.D{
			"username":              "george",
			"password":              "another",
			"password_confirmation": "another",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusConflict, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"username-taken","message":"This username is already taken."}}`, r.Body.String())
		})

	gofight.New().POST("/signup").
		SetJSON(gofight.D{
			"username":              "jose",
			"password":              "monde-de-merde",
			"password_confirmation": "monde-de-merdes",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"password-mismatch","message":"Passwords do not match."}}`, r.Body.String())
		})

	gofight.New().POST("/signup").
		SetJSON(gofight.D{
			"username": strings.Repeat("j", model.MaxUsernameLength+1),
			"password": "x",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
		})

	gofight.New().POST("/signup").
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"message":"Could not get user's params."}}`, r.Body.String())
		})
}

func TestRequestSignup_NoRegistration(t *testing.T) {
	engine, _ := setup(t, func(ctrl *server.Controller) {
		ctrl.NoRegistration = true
	})

	gofight.New().POST("/signup").
		SetJSON(gofight.D{
			"username":              "george",
			"password":              "la-classe-americaine",
			"password_confirmation": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNotFound, r.Code)
		})

	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "george",
			"password": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})
}

func TestRequestLogin(t *testing.T) {
	engine, f := setup(t)
	user := f.createUser(t, "george", "la-classe-americaine")

	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "george",
			"password": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v := fastjson.MustParse(r.Body.String())
			assert.Equal(t, 3, len(strings.Split(string(v.GetStringBytes("token")), ".")))
			assert.NotEmpty(t, v.GetStringBytes("expire_at"))
			assert.Equal(t, user.ID, v.GetInt64("user", "id"))
		})

	var wrong, unknown string
	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "george",
			"password": "monde-de-merde",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			wrong = r.Body.String()
		})
	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "jose",
			"password": "monde-de-merde",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			unknown = r.Body.String()
		})
	assert.JSONEq(t, invalidCredentials, wrong)
	assert.Equal(t, wrong, unknown, "unknown username and wrong password must look alike")

	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "george",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"message":"No username or password provided."}}`, r.Body.String())
		})

	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": strings.Repeat("g", model.MaxUsernameLength+1),
			"password": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"invalid-credentials","message":"Could not get credentials."}}`, r.Body.String())
		})
}

func TestRequestLogin_UpgradesLegacyHash(t *testing.T) {
	engine, f := setup(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("la-classe-americaine"), bcrypt.MinCost)
	require.NoError(t, err)
	user := f.createUser(t, "george", "unused")
	user.SetPasswordHash(password.Hash(legacy))
	require.NoError(t, f.ctrl.Database.Save(context.Background(), user))

	token := login(t, engine, "george", "la-classe-americaine")

	stored := f.reload(t, user)
	assert.True(t, strings.HasPrefix(stored.Password, "$argon2id$"))

	// The session was issued for the upgraded hash.
	gofight.New().GET("/home").
		SetHeader(bearer(token)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
		})
}

func TestRequestHome_Restricted(t *testing.T) {
	engine, f := setup(t)
	f.createUser(t, "george", "la-classe-americaine")
	token := login(t, engine, "george", "la-classe-americaine")

	gofight.New().GET("/home").
		SetHeader(bearer(token)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v := fastjson.MustParse(r.Body.String())
			assert.Equal(t, "george", string(v.GetStringBytes("data", "username")))
			assert.Equal(t, "george@nowhere.lan", string(v.GetStringBytes("data", "email")))
		})

	for _, header := range []gofight.H{
		{},
		bearer("garbage"),
		{"Authorization": "Basic " + token},
	} {
		gofight.New().GET("/home").
			SetHeader(header).
			Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
				assert.Equal(t, http.StatusUnauthorized, r.Code)
				assert.JSONEq(t, `{"error":{"tag":"invalid-auth","message":"Invalid login credentials."}}`, r.Body.String())
			})
	}
}

func TestRequestPasswordReset(t *testing.T) {
	engine, f := setup(t)
	user := f.createUser(t, "george", "la-classe-americaine")
	session := login(t, engine, "george", "la-classe-americaine")

	var accepted string
	gofight.New().POST("/forgot-password").
		SetJSON(gofight.D{
			"username": "george",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusAccepted, r.Code)
			accepted = r.Body.String()
		})

	link := f.outbox.last(t)
	assert.Equal(t, "george@nowhere.lan", link.destination)
	assert.Equal(t, resettoken.EncodeUID(user.ID), link.uid)
	assert.Regexp(t, `^[0-9a-z]+-[0-9a-f]{20}$`, link.token)
	path := "/reset-password/" + link.uid + "/" + link.token

	gofight.New().GET(path).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
			assert.JSONEq(t, `{"valid":true}`, r.Body.String())
		})

	gofight.New().POST(path).
		SetJSON(gofight.D{
			"password":              "monde-de-merde",
			"password_confirmation": "monde-de-merdes",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"password-mismatch","message":"Passwords do not match."}}`, r.Body.String())
		})

	gofight.New().POST(path).
		SetJSON(gofight.D{
			"password":              "monde-de-merde",
			"password_confirmation": "monde-de-merde",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code, r.Body.String())
		})

	// The link is single use: the signed hash has changed.
	gofight.New().GET(path).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"invalid-reset-link","message":"The password reset link is invalid or has expired."}}`, r.Body.String())
		})
	gofight.New().POST(path).
		SetJSON(gofight.D{
			"password":              "la-classe-americaine",
			"password_confirmation": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
		})

	// The previous session is revoked.
	gofight.New().GET("/home").
		SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"revoked-session","message":"Revoked session."}}`, r.Body.String())
		})

	login(t, engine, "george", "monde-de-merde")
	gofight.New().POST("/login").
		SetJSON(gofight.D{
			"username": "george",
			"password": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})

	// Unknown accounts get the same answer and nothing is delivered.
	gofight.New().POST("/forgot-password").
		SetJSON(gofight.D{
			"username": "jose",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusAccepted, r.Code)
			assert.Equal(t, accepted, r.Body.String())
		})
	assert.Len(t, f.outbox.deliveries, 1)

	for _, entry := range f.hook.AllEntries() {
		assert.NotContains(t, entry.Message, link.token, "reset token must not be logged")
	}
}

func TestRequestPasswordReset_DeliveryFailure(t *testing.T) {
	engine, f := setup(t)
	f.createUser(t, "george", "la-classe-americaine")
	f.outbox.err = errors.New("smtp down")

	gofight.New().POST("/forgot-password").
		SetJSON(gofight.D{
			"username": "george",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusAccepted, r.Code)
		})

	var delivery *logrus.Entry
	for _, entry := range f.hook.AllEntries() {
		if entry.Message == "could not deliver reset link" {
			delivery = entry
		}
	}
	require.NotNil(t, delivery, "delivery failure must be logged")
	assert.Equal(t, logrus.ErrorLevel, delivery.Level)
}

func TestRequestPasswordReset_InvalidLinks(t *testing.T) {
	engine, f := setup(t)
	user := f.createUser(t, "george", "la-classe-americaine")

	token, err := resettoken.Mint(user, f.ctrl.SecretKey)
	require.NoError(t, err)
	forged, err := resettoken.Mint(user, []byte("not-the-secret"))
	require.NoError(t, err)
	uid := resettoken.EncodeUID(user.ID)

	for _, path := range []string{
		"/reset-password/" + uid + "/" + forged,
		"/reset-password/" + uid + "/" + token[:len(token)-1],
		"/reset-password/" + uid + "/garbage",
		"/reset-password/!!!/" + token,
		"/reset-password/" + resettoken.EncodeUID(user.ID+1) + "/" + token,
	} {
		gofight.New().GET(path).
			Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
				assert.Equal(t, http.StatusBadRequest, r.Code, path)
			})
	}

	gofight.New().GET("/reset-password/" + uid + "/" + token).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
		})
}

func TestRequestChangePassword(t *testing.T) {
	engine, f := setup(t)
	f.createUser(t, "george", "la-classe-americaine")
	session := login(t, engine, "george", "la-classe-americaine")

	gofight.New().POST("/change-password").
		SetHeader(bearer(session)).
		SetJSON(gofight.D{
			"current_password": "wrong",
			"new_password":     "monde-de-merde",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})

	gofight.New().POST("/change-password").
		SetHeader(bearer(session)).
		SetJSON(gofight.D{
			"current_password": "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
		})

	var renewed string
	gofight.New().POST("/change-password").
		SetHeader(bearer(session)).
		SetJSON(gofight.D{
			"current_password": "la-classe-americaine",
			"new_password":     "monde-de-merde",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code, r.Body.String())
			renewed = string(fastjson.MustParse(r.Body.String()).GetStringBytes("token"))
		})
	require.NotEmpty(t, renewed)

	gofight.New().GET("/home").
		SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"revoked-session","message":"Revoked session."}}`, r.Body.String())
		})

	gofight.New().GET("/home").
		SetHeader(bearer(renewed)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
		})

	gofight.New().POST("/change-password").
		SetJSON(gofight.D{
			"current_password": "monde-de-merde",
			"new_password":     "la-classe-americaine",
		}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusUnauthorized, r.Code)
		})
}
