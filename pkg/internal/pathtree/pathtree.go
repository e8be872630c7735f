// Package pathtree 维护存储桶内的逻辑目录树：校验名称与路径、推导物化路径、解析父目录.
//
// 物化路径以分隔符开头，例如 /2024/a.png；存储桶根目录的路径为空串.
// 接口层的目录路径既可以写成相对形式 2024/06，也可以写成绝对形式 /2024/06，
// 两者在校验前统一为相对形式.
package pathtree

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/storevault/pkg/internal/errs"
	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/rule"
)

// Separator 路径分隔符.
const Separator = rule.PathSeparator

// 校验规则，与 types 中请求结构体的 rule 标签保持一致.
const (
	BucketNameRule = "required,min=1,max=254"
	FolderPathRule = "omitempty,max=1023,folderpath"
	NameRule       = "required,max=1023,segment"
)

// FolderLookup 按物化路径查找目录，不存在时返回 errs.NotFoundError.
type FolderLookup interface {
	FolderByPath(ctx context.Context, bucketID, path string) (*model.StorageItem, error)
}

// ValidateBucketName 校验存储桶名称，长度须在 (0, 255) 之间.
func ValidateBucketName(name string) error {
	return check("bucket name", name, BucketNameRule)
}

// ValidateFolderPath 校验目录路径，空串或单独的分隔符表示根目录.
func ValidateFolderPath(p string) error {
	return check("folder path", Relative(p), FolderPathRule)
}

// ValidateName 校验目录名或文件名.
func ValidateName(name string) error {
	return check("name", name, NameRule)
}

// ValidateItemPath 校验指向某个存储项的路径，不允许指向根目录.
func ValidateItemPath(p string) error {
	if IsRoot(p) {
		return errs.Invalid("path", p, "must name an item below the bucket root")
	}

	return check("path", Relative(p), FolderPathRule)
}

// IsRoot 判断路径是否表示存储桶根目录.
func IsRoot(p string) bool {
	return p == "" || p == Separator
}

// Relative 去掉表示绝对路径的单个前导分隔符.
func Relative(p string) string {
	return strings.TrimPrefix(p, Separator)
}

// Abs 将已校验的路径转为物化路径，根目录返回空串.
func Abs(p string) string {
	if IsRoot(p) {
		return ""
	}

	return Separator + Relative(p)
}

// Split 将路径拆分为各级名称.
func Split(p string) []string {
	rel := Relative(p)
	if rel == "" {
		return nil
	}

	return strings.Split(rel, Separator)
}

// Dir 将物化路径拆为父路径与名称，例如 /2024/a.png -> (/2024, a.png)，/a.png -> ("", a.png).
func Dir(p string) (parent, name string) {
	abs := Abs(p)

	idx := strings.LastIndex(abs, Separator)
	if idx < 0 {
		return "", abs
	}

	return abs[:idx], abs[idx+1:]
}

// Lineage 返回物化路径自顶向下的各级前缀（含自身），例如 /a/b -> [/a /a/b]，根目录返回 nil.
func Lineage(p string) []string {
	parts := Split(p)
	out := make([]string, 0, len(parts))

	cur := ""
	for _, name := range parts {
		cur += Separator + name
		out = append(out, cur)
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// ChildPath 计算子项的物化路径.
func ChildPath(parent *model.StorageItem, name string) string {
	if parent == nil {
		return Separator + name
	}

	return parent.Path + Separator + name
}

// Attach 将 item 挂到 parent 下（parent 为 nil 表示根目录），同时重算 ParentID 与 Path.
func Attach(item, parent *model.StorageItem) {
	if parent == nil {
		item.ParentID = nil
	} else {
		id := parent.ID
		item.ParentID = &id
	}

	item.Path = ChildPath(parent, item.Name)
}

// IsWithin 判断 p 是否位于 ancestor 之下（严格前缀，按段边界）.
func IsWithin(p, ancestor string) bool {
	if ancestor == "" {
		return p != ""
	}

	return strings.HasPrefix(p, ancestor+Separator)
}

// Rebase 将 p 的前缀 oldPrefix 替换为 newPrefix，p 必须等于 oldPrefix 或位于其下.
func Rebase(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}

	return newPrefix + strings.TrimPrefix(p, oldPrefix)
}

// ResolveParent 解析目录路径对应的父目录；根目录返回 nil.
func ResolveParent(ctx context.Context, lookup FolderLookup, bucketID, p string) (*model.StorageItem, error) {
	if IsRoot(p) {
		return nil, nil
	}

	folder, err := lookup.FolderByPath(ctx, bucketID, Abs(p))
	if err != nil {
		return nil, err
	}

	return folder, nil
}

// FromRuleError 将 validator 的校验错误转换为 errs.ValidationError，其它错误原样返回.
func FromRuleError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]

		value, _ := fe.Value().(string)

		return &errs.ValidationError{Field: fe.Field(), Rule: fe.Tag(), Value: value}
	}

	return err
}

func check(field, value, tag string) error {
	if err := rule.ValidateVar(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &errs.ValidationError{Field: field, Rule: fieldErrs[0].Tag(), Value: value}
		}

		return err
	}

	return nil
}
