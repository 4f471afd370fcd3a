package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-qr/middlewares"
	"github.com/yeremiapane/restaurant-qr/services"
	"github.com/yeremiapane/restaurant-qr/utils"
)

type QRController struct {
	QR           *services.QRService
	Sessions     *services.TableSessionService
	Signer       *utils.LinkSigner
	CookieSecure bool
}

func NewQRController(qr *services.QRService, sessions *services.TableSessionService, signer *utils.LinkSigner, cookieSecure bool) *QRController {
	return &QRController{QR: qr, Sessions: sessions, Signer: signer, CookieSecure: cookieSecure}
}

// GenerateSignedQR -> GET /qr/:file where file is "<tableNumber>.png"
func (qc *QRController) GenerateSignedQR(c *gin.Context) {
	file := c.Param("file")
	if !strings.HasSuffix(file, ".png") {
		c.String(http.StatusNotFound, "table not found")
		return
	}

	qr, err := qc.QR.Generate(c.Request.Context(), strings.TrimSuffix(file, ".png"))
	if err != nil {
		if errors.Is(err, services.ErrTableNotFound) {
			c.String(http.StatusNotFound, "table not found")
			return
		}
		utils.ErrorLogger.WithError(err).Error("generateSignedQR error")
		c.String(http.StatusInternalServerError, "QR generation failed")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", qr.PNG)
}

// GetSignedQR -> GET /api/qr-codes/:tableNumber, same as GenerateSignedQR but as JSON
func (qc *QRController) GetSignedQR(c *gin.Context) {
	qr, err := qc.QR.Generate(c.Request.Context(), c.Param("tableNumber"))
	if err != nil {
		if errors.Is(err, services.ErrTableNotFound) {
			utils.RespondReason(c, http.StatusNotFound, services.ErrTableNotFound.Error())
			return
		}
		utils.ErrorLogger.WithError(err).Error("getSignedQR error")
		utils.RespondReason(c, http.StatusInternalServerError, "server_error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"url":     qr.Link.URL,
		"qr_code": qr.DataURL,
		"expire":  qr.Expire.UTC().Format(time.RFC3339),
	})
}

// ValidateAndCreateSession -> GET /api/qr/validate?table=&ts=&sig=
func (qc *QRController) ValidateAndCreateSession(c *gin.Context) {
	payload, sig, err := utils.ParseLinkQuery(c.Query("table"), c.Query("ts"), c.Query("sig"))
	if err != nil {
		qc.reject(c, http.StatusBadRequest, err.Error(), c.Query("table"))
		return
	}

	if err := qc.Signer.Check(payload, sig); err != nil {
		qc.reject(c, http.StatusUnauthorized, err.Error(), payload.TableNumber)
		return
	}

	created, err := qc.Sessions.Create(c.Request.Context(), payload.TableNumber)
	if err != nil {
		if errors.Is(err, services.ErrTableNotFound) {
			qc.reject(c, http.StatusNotFound, services.ErrTableNotFound.Error(), payload.TableNumber)
			return
		}
		utils.ErrorLogger.WithError(err).WithField("table_number", payload.TableNumber).Error("validate error")
		utils.RespondReason(c, http.StatusInternalServerError, "server_error")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.SessionCookieName, string(created.Credential),
		int(qc.Sessions.TTL.Seconds()), "/", "", qc.CookieSecure, true)

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"table_id":     created.TableID,
		"table_number": created.TableNumber,
	})
}

// ReleaseTable -> POST /api/tables/release, behind RequireTableSession
func (qc *QRController) ReleaseTable(c *gin.Context) {
	id, ok := middlewares.TableFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, utils.ReasonResponse{OK: false})
		return
	}

	if err := qc.Sessions.Release(c.Request.Context(), id.TableID); err != nil {
		if errors.Is(err, services.ErrTableNotFound) {
			c.JSON(http.StatusNotFound, utils.ReasonResponse{OK: false})
			return
		}
		utils.ErrorLogger.WithError(err).WithField("table_id", id.TableID).Error("release error")
		c.JSON(http.StatusInternalServerError, utils.ReasonResponse{OK: false})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middlewares.SessionCookieName, "", -1, "/", "", qc.CookieSecure, true)
	c.JSON(http.StatusOK, utils.ReasonResponse{OK: true})
}

func (qc *QRController) reject(c *gin.Context, code int, reason, tableNumber string) {
	services.LinkRejections.WithLabelValues(reason).Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"reason":       reason,
		"table_number": tableNumber,
		"ip":           c.ClientIP(),
	}).Info("qr link rejected")
	utils.RespondReason(c, code, reason)
}
