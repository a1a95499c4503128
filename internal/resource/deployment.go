package resource

import (
	"imecore/internal/diag"
	"imecore/pkg/contract"
)

// Deployment: 一个引擎实例可见的数据目录布局。
// 用户目录优先，缺失时回退到共享目录；编译快照写入 CacheDir（为空时不使用快照）。
type Deployment struct {
	SharedDataDir string
	UserDataDir   string
	CacheDir      string
	UserDbBackend string
}

// SchemaResolver 解析方案文件。
func (d *Deployment) SchemaResolver() PathResolver {
	return NewFallbackResolver(SchemaType, d.userOrShared(), d.SharedDataDir)
}

// DictSources 依次返回 .dict.yaml 与 .table.txt 的解析器。
func (d *Deployment) DictSources() []PathResolver {
	return []PathResolver{
		NewFallbackResolver(DictType, d.userOrShared(), d.SharedDataDir),
		NewFallbackResolver(TableType, d.userOrShared(), d.SharedDataDir),
	}
}

// CacheResolver 解析编译快照；CacheDir 为空时返回 nil。
func (d *Deployment) CacheResolver() PathResolver {
	if d.CacheDir == "" {
		return nil
	}
	return NewResolver(CacheType, d.CacheDir)
}

// UserDbResolver 按后端选择用户词库文件类别。
func (d *Deployment) UserDbResolver() PathResolver {
	t := UserDBType
	if d.UserDbBackend == "sqlite" {
		t = UserSQLiteType
	}
	return NewResolver(t, d.userOrShared())
}

func (d *Deployment) userOrShared() string {
	if d.UserDataDir != "" {
		return d.UserDataDir
	}
	return d.SharedDataDir
}

// Provider 由引擎实现：阶段通过 Ticket.Engine 取得部署布局与日志器。
type Provider interface {
	Deployment() *Deployment
	Logger() *diag.Logger
}

// FromTicket 取出引擎提供的部署布局与日志器；引擎未实现 Provider 时返回空布局与 no-op 日志器。
func FromTicket(t contract.Ticket) (*Deployment, *diag.Logger) {
	if p, ok := t.Engine.(Provider); ok && p != nil {
		dep, log := p.Deployment(), p.Logger()
		if dep == nil {
			dep = &Deployment{}
		}
		if log == nil {
			log = diag.NewNop()
		}
		return dep, log
	}
	return &Deployment{}, diag.NewNop()
}
