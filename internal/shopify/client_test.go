package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-enricher/internal/common/errors"
)

func TestClient_WriteAttribute(t *testing.T) {
	var gotPath, gotToken string
	var gotBody metafieldRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"metafield":{"id":1}}`))
	}))
	defer server.Close()

	client := NewClient(Config{AccessToken: "shpat_test", BaseURL: server.URL}, nil)

	err := client.WriteAttribute(context.Background(), "ORD1", "imei", "IMEI123")
	require.NoError(t, err)

	assert.Equal(t, "/orders/ORD1/metafields.json", gotPath)
	assert.Equal(t, "shpat_test", gotToken)
	assert.Equal(t, "custom", gotBody.Metafield.Namespace)
	assert.Equal(t, "imei", gotBody.Metafield.Key)
	assert.Equal(t, "IMEI123", gotBody.Metafield.Value)
	assert.Equal(t, "single_line_text_field", gotBody.Metafield.Type)
}

func TestClient_WriteAttribute_Validation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unreachable.invalid"}, nil)

	err := client.WriteAttribute(context.Background(), "", "imei", "IMEI123")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	err = client.WriteAttribute(context.Background(), "ORD1", "", "IMEI123")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestClient_WriteAttribute_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":{"value":["can't be blank"]}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)

	err := client.WriteAttribute(context.Background(), "ORD1", "imei", "IMEI123")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProvider))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Context["status"])
	assert.Equal(t, "imei", appErr.Context["key"])
}

func TestClient_DefaultBaseURL(t *testing.T) {
	client := NewClient(Config{Store: "example", APIVersion: "2024-01"}, nil)

	assert.Equal(t, "https://example.myshopify.com/admin/api/2024-01", client.baseURL())
}
