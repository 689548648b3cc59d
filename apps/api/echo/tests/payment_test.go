package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmvidalr/corredora/core/contract"
	"github.com/jmvidalr/corredora/core/payment"
	testutil "github.com/jmvidalr/corredora/tests"
)

func Test_paymentApi_queryByContract(t *testing.T) {
	fx := setupContractFixtures(t)

	inicio := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ctr := testutil.CreateContrato(t, ctrRepo, fx.cliente.ID, fx.agente.ID, fx.productoID, contract.FrecuenciaMensual, 100, inicio)
	pago := testutil.PendingPago(t, pagoRepo, ctr.ID)

	path := "/v1/contratos/" + ctr.ID + "/pagos"
	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Unknown contract", path: "/v1/contratos/00000000-0000-0000-0000-000000000000/pagos",
			token: getToken(t, fx.agente), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Foreign contract forbidden", path: path, token: getToken(t, fx.otherCliente),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Own installments", path: path, token: getToken(t, fx.cliente), wantData: marchallList(t, pago)},
		{name: "Staff sees any contract's installments", path: path, token: getToken(t, fx.agente), wantData: marchallList(t, pago)},
		{name: "Filter by estado (match)", path: path + "?estado=pendiente", token: getToken(t, fx.cliente), wantData: marchallList(t, pago)},
		{name: "Filter by estado (none)", path: path + "?estado=completado", token: getToken(t, fx.cliente), wantData: marchallList(t, []interface{}{}...)},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_paymentApi_retrieve(t *testing.T) {
	fx := setupContractFixtures(t)

	inicio := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ctr := testutil.CreateContrato(t, ctrRepo, fx.cliente.ID, fx.agente.ID, fx.productoID, contract.FrecuenciaMensual, 100, inicio)
	pago := testutil.PendingPago(t, pagoRepo, ctr.ID)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/pagos/" + pago.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/pagos/" + pago.ID, token: getToken(t, fx.cliente),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Staff retrieves", path: "/v1/pagos/" + pago.ID, token: getToken(t, fx.agente), wantCode: http.StatusOK, wantData: marchallObj(t, pago)},
		{
			name: "Unknown ID", path: "/v1/pagos/00000000-0000-0000-0000-000000000000", token: getToken(t, fx.agente),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_paymentApi_register(t *testing.T) {
	fx := setupContractFixtures(t)

	// monthly contract starting 2024-01-15: installments fall on the 15th
	inicio := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ctr := testutil.CreateContrato(t, ctrRepo, fx.cliente.ID, fx.agente.ID, fx.productoID, contract.FrecuenciaMensual, 100, inicio)
	pago := testutil.PendingPago(t, pagoRepo, ctr.ID)

	agToken := getToken(t, fx.agente)
	body := marchallObj(t, payment.RegisterPago{MetodoPago: "transferencia", Referencia: "TRX-001"})

	t.Run("Staff required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+pago.ID+"/registrar", getToken(t, fx.cliente), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("Metodo de pago required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+pago.ID+"/registrar", agToken, []byte("{}"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"metodo_pago": "this field is required"}),
		}, rec)
	})

	t.Run("Unknown metodo de pago rejected", func(t *testing.T) {
		bad := marchallObj(t, payment.RegisterPago{MetodoPago: "cheque"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+pago.ID+"/registrar", agToken, bad)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"metodo_pago": "must be one of: transferencia tarjeta efectivo"}),
		}, rec)
	})

	t.Run("Unknown ID", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/00000000-0000-0000-0000-000000000000/registrar", agToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("Payment registered and next installment scheduled", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+pago.ID+"/registrar", agToken, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var paid payment.Pago
		if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
			t.Fatalf("unmarshalling Pago: %v", err)
		}
		assert.Equal(t, payment.EstadoCompletado, paid.Estado)
		assert.Equal(t, "transferencia", paid.MetodoPago)
		assert.Equal(t, "TRX-001", paid.Referencia)
		if assert.NotNil(t, paid.FechaPagado) {
			assert.False(t, paid.FechaPagado.IsZero())
		}

		// one month later, same amount
		next := testutil.PendingPago(t, pagoRepo, ctr.ID)
		assert.NotEqual(t, paid.ID, next.ID)
		assert.Equal(t, ctr.MontoPago, next.Monto)
		assert.True(t, next.FechaProgramada.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("Completed payment cannot be registered again", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+pago.ID+"/registrar", agToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "payment already registered"}),
		}, rec)
	})

	t.Run("Quarterly cadence", func(t *testing.T) {
		trimestral := testutil.CreateContrato(t, ctrRepo, fx.cliente.ID, fx.agente.ID, fx.productoID, contract.FrecuenciaTrimestral, 300, inicio)
		first := testutil.PendingPago(t, pagoRepo, trimestral.ID)

		req, rec := newAuthRequest(http.MethodPost, "/v1/pagos/"+first.ID+"/registrar", agToken, marchallObj(t, payment.RegisterPago{MetodoPago: "efectivo"}))
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		next := testutil.PendingPago(t, pagoRepo, trimestral.ID)
		assert.True(t, next.FechaProgramada.Equal(time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)))
	})
}
