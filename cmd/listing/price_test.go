package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"guestpost/internal/apiclient"
	"guestpost/internal/clientstate"
	"guestpost/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrice_CapsSelections(t *testing.T) {
	var sent apiclient.UpdateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/api/websites/7", r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"ok":true,"data":{"id":7,"domain":"example.com","status":"draft","verificationStatus":"verified","publishingPrice":50}}`)
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			fmt.Fprint(w, `{"ok":true,"message":"Website submitted","data":{"id":7,"domain":"example.com","status":"submitted","stage":"awaiting_moderation"}}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	store, err := clientstate.NewFileStore(filepath.Join(t.TempDir(), "state.yml"))
	require.NoError(t, err)
	require.NoError(t, store.Save(7))
	app := &cli{api: apiclient.New(srv.URL), store: store}

	err = runPrice(context.Background(), app, []string{
		"--publishing", "120",
		"--categories", "Business,Finance,Technology,Travel",
		"--keywords", "a,b,c,d,e,f",
		"--additional-countries", "France,Spain,Italy,Poland",
		"--additional-languages", "English,French,Spanish,Italian",
		"--submit",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Business", "Finance", "Technology"}, sent.AllCategories)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, sent.Keywords)
	assert.Equal(t, []string{"France", "Spain", "Italy"}, sent.AdditionalCountries)
	assert.Equal(t, []string{"English", "French", "Spanish"}, sent.AdditionalLanguages)
	assert.Equal(t, 120.0, sent.PublishingPrice)
	assert.Equal(t, models.WebsiteStatusSubmitted, sent.Status)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok, "submitting forgets the remembered website")
}
