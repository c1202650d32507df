package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paysub/internal/constants"
	"github.com/paysub/internal/models"
)

var (
	ErrProductInvalid = errors.New("catalog product invalid")
	ErrProductExists  = errors.New("catalog product duplicated")
)

// Product 商品定义
type Product struct {
	ID                 string
	Name               string
	Price              models.Money
	IsSubscription     bool
	SubscriptionPeriod string // monthly / yearly，非订阅为空
}

// Catalog 商品只读查询
type Catalog interface {
	Get(productID string) (*Product, bool)
}

// ProductDefinition 配置中的商品条目
type ProductDefinition struct {
	ID                 string `mapstructure:"id"`
	Name               string `mapstructure:"name"`
	Price              string `mapstructure:"price"`
	IsSubscription     bool   `mapstructure:"is_subscription"`
	SubscriptionPeriod string `mapstructure:"subscription_period"`
}

// StaticCatalog 基于内存映射的商品目录
type StaticCatalog struct {
	products map[string]Product
}

// NewStaticCatalog 从商品定义构建目录
func NewStaticCatalog(defs []ProductDefinition) (*StaticCatalog, error) {
	products := make(map[string]Product, len(defs))
	for _, def := range defs {
		product, err := def.toProduct()
		if err != nil {
			return nil, err
		}
		if _, ok := products[product.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrProductExists, product.ID)
		}
		products[product.ID] = product
	}
	return &StaticCatalog{products: products}, nil
}

// Get 按商品ID查询，返回副本
func (c *StaticCatalog) Get(productID string) (*Product, bool) {
	if c == nil {
		return nil, false
	}
	product, ok := c.products[strings.TrimSpace(productID)]
	if !ok {
		return nil, false
	}
	return &product, true
}

// Len 商品数量
func (c *StaticCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

func (d ProductDefinition) toProduct() (Product, error) {
	id := strings.TrimSpace(d.ID)
	name := strings.TrimSpace(d.Name)
	if id == "" || name == "" {
		return Product{}, fmt.Errorf("%w: id and name are required", ErrProductInvalid)
	}
	price, err := models.ParseMoney(d.Price)
	if err != nil || !price.IsPositive() {
		return Product{}, fmt.Errorf("%w: %s price %q", ErrProductInvalid, id, d.Price)
	}
	period := strings.ToLower(strings.TrimSpace(d.SubscriptionPeriod))
	if d.IsSubscription {
		if period != constants.SubscriptionPeriodMonthly && period != constants.SubscriptionPeriodYearly {
			return Product{}, fmt.Errorf("%w: %s subscription_period %q", ErrProductInvalid, id, d.SubscriptionPeriod)
		}
	} else {
		period = ""
	}
	return Product{
		ID:                 id,
		Name:               name,
		Price:              price,
		IsSubscription:     d.IsSubscription,
		SubscriptionPeriod: period,
	}, nil
}
