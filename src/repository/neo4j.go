package repository

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jGraph keeps follows as (:User)-[:Subscriber]->(:User) and saves as
// (:User)-[:Saved]->(:Post).
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraph(ctx context.Context, uri, username, password string) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect graph %s: %w", uri, err)
	}
	return &Neo4jGraph{driver: driver}, nil
}

func (g *Neo4jGraph) write(ctx context.Context, query string, params map[string]any) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

func (g *Neo4jGraph) readIDs(ctx context.Context, query string, params map[string]any) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	ids, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		list := make([]string, 0)
		for result.Next(ctx) {
			if id, ok := result.Record().Values[0].(string); ok {
				list = append(list, id)
			}
		}
		return list, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids.([]string), nil
}

func (g *Neo4jGraph) Follow(ctx context.Context, user, target string) error {
	if user == target {
		return ErrSelfRelation
	}
	err := g.write(ctx,
		"MERGE (a:User {name: $id}) MERGE (b:User {name: $to}) MERGE (a)-[:Subscriber]->(b);",
		map[string]any{"id": user, "to": target})
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) Unfollow(ctx context.Context, user, target string) error {
	err := g.write(ctx,
		"MATCH (:User {name: $id})-[r:Subscriber]->(:User {name: $to}) DELETE r;",
		map[string]any{"id": user, "to": target})
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) Following(ctx context.Context, user string) ([]string, error) {
	ids, err := g.readIDs(ctx,
		"MATCH (:User {name: $id})-[:Subscriber]->(u:User) RETURN u.name ORDER BY u.name;",
		map[string]any{"id": user})
	if err != nil {
		return nil, fmt.Errorf("following: %w", err)
	}
	return ids, nil
}

func (g *Neo4jGraph) Followers(ctx context.Context, user string) ([]string, error) {
	ids, err := g.readIDs(ctx,
		"MATCH (u:User)-[:Subscriber]->(:User {name: $id}) RETURN u.name ORDER BY u.name;",
		map[string]any{"id": user})
	if err != nil {
		return nil, fmt.Errorf("followers: %w", err)
	}
	return ids, nil
}

func (g *Neo4jGraph) Save(ctx context.Context, user, postID string) error {
	err := g.write(ctx,
		"MERGE (a:User {name: $id}) MERGE (p:Post {id: $to}) MERGE (a)-[:Saved]->(p);",
		map[string]any{"id": user, "to": postID})
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) Unsave(ctx context.Context, user, postID string) error {
	err := g.write(ctx,
		"MATCH (:User {name: $id})-[r:Saved]->(:Post {id: $to}) DELETE r;",
		map[string]any{"id": user, "to": postID})
	if err != nil {
		return fmt.Errorf("unsave post: %w", err)
	}
	return nil
}

func (g *Neo4jGraph) Saved(ctx context.Context, user string) ([]string, error) {
	ids, err := g.readIDs(ctx,
		"MATCH (:User {name: $id})-[:Saved]->(p:Post) RETURN p.id ORDER BY p.id;",
		map[string]any{"id": user})
	if err != nil {
		return nil, fmt.Errorf("saved posts: %w", err)
	}
	return ids, nil
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
