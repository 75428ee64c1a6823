package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_agent_without_user",
			SQL: `SELECT a.agent_id FROM agents a
                  LEFT JOIN users u ON u.user_id = a.user_id
                  WHERE u.user_id IS NULL`,
		},
		{
			Name: "O2_user_with_multiple_agents",
			SQL: `SELECT user_id, COUNT(*) FROM agents
                  GROUP BY user_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_role_agent_without_agent_row",
			SQL: `SELECT u.user_id FROM users u
                  LEFT JOIN agents a ON a.user_id = u.user_id
                  WHERE u.role = 'agent' AND a.agent_id IS NULL`,
		},
		{
			Name: "O4_agent_row_without_agent_role",
			SQL: `SELECT a.agent_id FROM agents a
                  JOIN users u ON u.user_id = a.user_id
                  WHERE u.role <> 'agent'`,
		},
		{
			Name: "O5_dangling_property_agent",
			SQL: `SELECT p.property_id FROM properties p
                  LEFT JOIN agents a ON a.agent_id = p.agent_id
                  WHERE p.agent_id IS NOT NULL AND a.agent_id IS NULL`,
		},
		{
			Name: "O6_duplicate_usernames",
			SQL: `SELECT username, COUNT(*) FROM users
                  GROUP BY username HAVING COUNT(*) > 1`,
		},
		{
			Name: "O7_dangling_commission",
			SQL: `SELECT c.commission_id FROM commissions c
                  LEFT JOIN agents a ON a.agent_id = c.agent_id
                  LEFT JOIN properties p ON p.property_id = c.property_id
                  WHERE a.agent_id IS NULL OR p.property_id IS NULL`,
		},
		{
			Name: "O8_sold_listing_without_commission",
			SQL: `SELECT p.property_id FROM properties p
                  LEFT JOIN commissions c ON c.property_id = p.property_id
                  WHERE p.status = 'sold' AND p.agent_id IS NOT NULL AND c.commission_id IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
