package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"github.com/yeremiapane/restaurant-qr/models"
	"github.com/yeremiapane/restaurant-qr/utils"
	"gorm.io/gorm"
)

// tableNumberPattern limits which table numbers can be rendered, mirroring
// what printed codes have always used.
var tableNumberPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// ValidTableNumber reports whether n may appear in a QR route.
func ValidTableNumber(n string) bool {
	return tableNumberPattern.MatchString(n)
}

// GeneratedQR is a freshly rendered table code.
type GeneratedQR struct {
	Table   models.Table
	Link    utils.SignedLink
	PNG     []byte
	DataURL string
	Expire  time.Time
}

type QRService struct {
	DB     *gorm.DB
	Signer *utils.LinkSigner
	Size   int
}

func NewQRService(db *gorm.DB, signer *utils.LinkSigner, size int) *QRService {
	return &QRService{DB: db, Signer: signer, Size: size}
}

// Generate signs a link for the table, renders it as a PNG and stores the
// image and its expiry on the table row.
func (s *QRService) Generate(ctx context.Context, tableNumber string) (*GeneratedQR, error) {
	if !ValidTableNumber(tableNumber) {
		return nil, ErrTableNotFound
	}

	var table models.Table
	if err := s.DB.WithContext(ctx).Where("table_number = ?", tableNumber).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("lookup table: %w", err)
	}

	link, err := s.Signer.IssueLink(table.TableNumber)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(link.URL, qrcode.High, s.Size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	expire := link.Payload.Expiry()

	if err := s.DB.WithContext(ctx).Model(&table).Updates(map[string]interface{}{
		"qr_code":   dataURL,
		"qr_expire": expire,
	}).Error; err != nil {
		return nil, fmt.Errorf("store qr: %w", err)
	}
	table.QRCode = dataURL
	table.QRExpire = &expire

	linksIssued.Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"table_id":     table.ID,
		"table_number": table.TableNumber,
		"expire":       expire.Format(time.RFC3339),
	}).Info("qr code generated")

	return &GeneratedQR{
		Table:   table,
		Link:    link,
		PNG:     png,
		DataURL: dataURL,
		Expire:  expire,
	}, nil
}
