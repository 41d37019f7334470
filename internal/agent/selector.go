package agent

import (
	"context"
	"strings"
)

// Selector 移动决策协作方的边界。给定当前文章、目标文章和候选出链，
// 返回下一步要走的文章；返回值必须在候选集合内。
type Selector interface {
	// ChooseNextArticle 选择下一步文章
	ChooseNextArticle(ctx context.Context, current, target string, links []string) (string, error)
}

// ContainsFold 大小写不敏感的候选命中检查。目标出现在候选集合中时
// 应直接走向目标，不再询问决策方。
func ContainsFold(links []string, target string) (string, bool) {
	for _, link := range links {
		if strings.EqualFold(link, target) {
			return link, true
		}
	}
	return "", false
}

// normalize 归一化为小写词元集合
func normalize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			tokens[sb.String()] = struct{}{}
			sb.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if r == ' ' || r == '_' || r == '-' || r == '(' || r == ')' || r == ',' || r == '.' {
			flush()
			continue
		}
		sb.WriteRune(r)
	}
	flush()
	return tokens
}
