package engine

import (
	"github.com/ak/cafeinv/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModifierGraph looks up modifiers by id for expands_to traversal
type ModifierGraph interface {
	Modifier(id primitive.ObjectID) *models.RecipeModifier
}

// ModifierSet is a ModifierGraph over a plain map
type ModifierSet map[primitive.ObjectID]*models.RecipeModifier

func (s ModifierSet) Modifier(id primitive.ObjectID) *models.RecipeModifier {
	return s[id]
}

// ResolveTree returns mod followed by its expands_to closure, depth
// first in stored order. One visited set spans the whole walk, so
// cycles terminate and shared children appear once.
func ResolveTree(mod *models.RecipeModifier, graph ModifierGraph) []*models.RecipeModifier {
	seen := make(map[primitive.ObjectID]bool)
	return resolveTree(mod, graph, seen)
}

func resolveTree(mod *models.RecipeModifier, graph ModifierGraph, seen map[primitive.ObjectID]bool) []*models.RecipeModifier {
	if mod == nil || seen[mod.ID] {
		return nil
	}
	seen[mod.ID] = true

	resolved := []*models.RecipeModifier{mod}
	for _, childID := range mod.ExpandsTo {
		resolved = append(resolved, resolveTree(graph.Modifier(childID), graph, seen)...)
	}
	return resolved
}
