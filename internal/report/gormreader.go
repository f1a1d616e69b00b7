package report

import (
	"context"

	"gorm.io/gorm"
)

// GormReader reads the inventory view through gorm.
type GormReader struct{ DB *gorm.DB }

func (r *GormReader) InventoryRows(ctx context.Context, owner string) ([]Row, error) {
	var rows []Row
	q := r.DB.WithContext(ctx).
		Table("products AS p").
		Select(`p.id, p.name, p.description, p.price, p.stock_quantity, p.picture, p.owner_email,
			c.name AS category_name, c.is_active AS category_active, n.message AS notice`).
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Joins("LEFT JOIN product_notifications n ON n.product_id = p.id")
	if owner != "" {
		q = q.Where("p.owner_email = ?", owner)
	}
	if err := q.Order("p.owner_email, c.name, p.name").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
