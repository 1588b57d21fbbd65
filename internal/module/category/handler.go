package category

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/cond"
	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

// AdCounter counts the ads attached directly to each category.
type AdCounter interface {
	CountByCategory(ctx context.Context, where cond.Expr) (map[uint]int64, error)
}

// CategoryHandler handles REST API requests for categories.
type CategoryHandler struct {
	svc     *Service
	counter AdCounter
}

// NewHandler creates a new CategoryHandler with the given service. When
// counter is nil the tree carries no ad counts.
func NewHandler(svc *Service, counter AdCounter) *CategoryHandler {
	return &CategoryHandler{svc: svc, counter: counter}
}

// Tree handles GET /api/v1/categories. Counts include verified ads only.
func (h *CategoryHandler) Tree(c *gin.Context) {
	ctx := c.Request.Context()
	cache, err := h.svc.LoadCache(ctx)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	tree, err := buildTree(ctx, cache.Roots())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	if h.counter != nil {
		own, err := h.counter.CountByCategory(ctx, cond.Eq("verified", true))
		if err != nil {
			pkg.Error(c, err)
			return
		}
		if err := fillCounts(ctx, tree, NewSubtreeCounter(cache, own)); err != nil {
			pkg.Error(c, err)
			return
		}
	}
	pkg.Success(c, tree)
}

func fillCounts(ctx context.Context, nodes []TreeNode, counter *SubtreeCounter) error {
	for i := range nodes {
		n, err := counter.Count(ctx, nodes[i].ID)
		if err != nil {
			return err
		}
		nodes[i].AdCount = n
		if err := fillCounts(ctx, nodes[i].Children, counter); err != nil {
			return err
		}
	}
	return nil
}

// Get handles GET /api/v1/categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	ctx := c.Request.Context()
	node, err := h.svc.Load(ctx, id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	view, err := viewOf(ctx, node, 1)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, view)
}

// Create handles POST /api/v1/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	created, err := h.svc.Create(c.Request.Context(), req.Name, req.ParentID, req.Ultimate)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	node, err := h.svc.Load(c.Request.Context(), created.ID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	view, err := viewOf(c.Request.Context(), node, 0)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "category created", view)
}

func buildTree(ctx context.Context, nodes []*Node) ([]TreeNode, error) {
	out := make([]TreeNode, 0, len(nodes))
	for _, n := range nodes {
		view, err := viewOf(ctx, n, -1)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// viewOf renders n with depth levels of children; a negative depth renders
// the whole subtree.
func viewOf(ctx context.Context, n *Node, depth int) (TreeNode, error) {
	view := TreeNode{
		ID:       n.ID,
		Name:     n.Name,
		FullName: n.FullName(),
		ParentID: n.ParentID,
		Ultimate: n.Ultimate,
		URL:      CanonicalURL(n.ID),
		Children: []TreeNode{},
	}
	if depth == 0 {
		return view, nil
	}
	children, err := n.SortedChildren(ctx)
	if err != nil {
		return TreeNode{}, err
	}
	for _, child := range children {
		cv, err := viewOf(ctx, child, depth-1)
		if err != nil {
			return TreeNode{}, err
		}
		view.Children = append(view.Children, cv)
	}
	return view, nil
}
