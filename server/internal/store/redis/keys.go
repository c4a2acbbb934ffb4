package redis

// Key layout, for prefix "tasks":
//
//	tasks:item:{taskId}  string  JSON record
//	tasks:index          zset    every taskId, score 0

func (s *Store) itemKey(id string) string { return s.prefix + ":item:" + id }

func (s *Store) indexKey() string { return s.prefix + ":index" }
