package mysql

import (
	"time"

	"gorm.io/gorm"
)

// 这里是infrastructure层的数据模型（带GORM tag），
// domain层的实体不依赖GORM，由Repository负责转换

// SeriesModel 套系
type SeriesModel struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"size:200;not null;comment:套系名称"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (SeriesModel) TableName() string {
	return "series"
}

// BookModel 图书
// 1. 价格使用int64存储"分"
// 2. stock只允许条件扣减/无条件增加两种写法（见stock_store.go）
// 3. Active不设default：GORM插入时会忽略零值false而使用默认值
type BookModel struct {
	ID          uint           `gorm:"primaryKey"`
	ISBN        string         `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Title       string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author      string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Publisher   string         `gorm:"size:100;comment:出版社"`
	Price       int64          `gorm:"index:idx_list;not null;comment:价格(分)"`
	Stock       int            `gorm:"not null;default:0;comment:库存数量"`
	SeriesID    *uint          `gorm:"index;comment:所属套系"`
	Active      bool           `gorm:"not null;comment:是否上架"`
	CoverURL    string         `gorm:"size:500;comment:封面图片URL"`
	Description string         `gorm:"type:text;comment:图书描述"`
	CreatedAt   time.Time      `gorm:"index:idx_list;comment:创建时间"`
	UpdatedAt   time.Time      `gorm:"comment:更新时间"`
	DeletedAt   gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (BookModel) TableName() string {
	return "books"
}

// CartModel 购物车，每个用户一个
type CartModel struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    uint            `gorm:"uniqueIndex;not null;comment:用户ID"`
	Items     []CartItemModel `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel 购物车明细，(cart_id, book_id)唯一
type CartItemModel struct {
	ID        uint      `gorm:"primaryKey"`
	CartID    uint      `gorm:"uniqueIndex:uk_cart_book;not null;comment:购物车ID"`
	BookID    uint      `gorm:"uniqueIndex:uk_cart_book;not null;comment:图书ID"`
	Quantity  int       `gorm:"not null;comment:数量"`
	CreatedAt time.Time `gorm:"comment:加入时间"`
	UpdatedAt time.Time
}

func (CartItemModel) TableName() string {
	return "cart_items"
}

// OrderModel 订单
// 1. 与OrderItemModel是一对多关系
// 2. OrderNo有唯一索引(业务主键)
// 3. 金额字段全部为分，Total已扣除套系折扣
type OrderModel struct {
	ID               uint             `gorm:"primaryKey"`
	OrderNo          string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID           uint             `gorm:"index;not null;comment:买家用户ID"`
	Subtotal         int64            `gorm:"not null;comment:原价合计(分)"`
	Discount         int64            `gorm:"not null;default:0;comment:套系折扣(分)"`
	Total            int64            `gorm:"not null;comment:应付金额(分)"`
	AppliedSeriesIDs []uint           `gorm:"serializer:json;type:text;comment:享受折扣的套系"`
	ShippingName     string           `gorm:"size:50;not null;comment:收货人"`
	ShippingPhone    string           `gorm:"size:20;comment:收货电话"`
	ShippingAddress  string           `gorm:"size:255;not null;comment:收货地址"`
	PaymentMethod    string           `gorm:"size:20;not null;comment:支付方式"`
	Status           int              `gorm:"index;type:tinyint;not null;comment:订单状态(1待确认2已确认3处理中4已发货5已送达6已取消)"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time        `gorm:"index;comment:创建时间"`
	UpdatedAt        time.Time        `gorm:"comment:更新时间"`
	DeletedAt        gorm.DeletedAt   `gorm:"index;comment:删除时间(软删除)"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细，记录下单时的价格快照
type OrderItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint   `gorm:"index;not null;comment:订单ID"`
	BookID    uint   `gorm:"index;not null;comment:图书ID"`
	BookTitle string `gorm:"size:200;not null;comment:下单时书名"`
	SeriesID  *uint  `gorm:"comment:下单时所属套系"`
	Quantity  int    `gorm:"not null;comment:购买数量"`
	UnitPrice int64  `gorm:"not null;comment:下单时单价(分)"`
	Subtotal  int64  `gorm:"not null;comment:小计(分)"`
	Discount  int64  `gorm:"not null;default:0;comment:分摊折扣(分)"`
	Total     int64  `gorm:"not null;comment:实付(分)"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// InventoryLogModel 库存流水
type InventoryLogModel struct {
	ID        uint      `gorm:"primaryKey"`
	BookID    uint      `gorm:"index;not null;comment:图书ID"`
	Type      string    `gorm:"size:20;not null;comment:DEDUCT/RELEASE/RESTOCK"`
	Quantity  int       `gorm:"not null;comment:变动数量(扣减为负)"`
	Ref       string    `gorm:"index;size:32;comment:关联订单号"`
	Remark    string    `gorm:"size:255;comment:备注"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (InventoryLogModel) TableName() string {
	return "inventory_logs"
}
