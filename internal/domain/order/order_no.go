package order

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateOrderNo 生成订单号
// 格式:yyyyMMddHHmmss + 毫秒(3位) + 6位随机数,共23位
// 时间前缀保证大致有序,随机后缀降低同一毫秒内冲突概率(数据库唯一索引兜底)
func GenerateOrderNo() string {
	now := time.Now()
	return fmt.Sprintf("%s%03d%06d", now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond), rand.Intn(1000000))
}
